// Package extract contains the pure HTML extractors for the catalog site.
// All functions are side-effect free: missing sections yield partial results
// or empty slices, never errors, because absent detail is a normal outcome
// for callers to judge.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/camelotware/herald/internal/models"
)

var itemIDRe = regexp.MustCompile(`(?:item\?id=|showItem\(|item/)(\d+)`)

// VariantCandidates scans search-result content for rows whose interactive
// affordance encodes an external item id, pairing each with the realm
// inferred from row metadata. An unparseable or empty page yields nil.
func VariantCandidates(content string) []models.VariantCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	table := doc.Find("table.item-search-results")
	if table.Length() == 0 {
		// Older markup served the results in a plain table.
		table = doc.Find("table#results, table.results")
	}
	if table.Length() == 0 {
		return nil
	}

	var candidates []models.VariantCandidate
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		id := rowItemID(row)
		if id == "" {
			return
		}
		candidates = append(candidates, models.VariantCandidate{
			ExternalID: id,
			Realm:      rowRealm(row),
		})
	})

	return candidates
}

// rowItemID pulls the external item id from a row's link or onclick handler.
func rowItemID(row *goquery.Selection) string {
	if href, ok := row.Find("a[href]").First().Attr("href"); ok {
		if m := itemIDRe.FindStringSubmatch(href); len(m) > 1 {
			return m[1]
		}
	}
	if onclick, ok := row.Attr("onclick"); ok {
		if m := itemIDRe.FindStringSubmatch(onclick); len(m) > 1 {
			return m[1]
		}
	}
	found := ""
	row.Find("[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		onclick, _ := s.Attr("onclick")
		if m := itemIDRe.FindStringSubmatch(onclick); len(m) > 1 {
			found = m[1]
			return false
		}
		return true
	})
	return found
}

// rowRealm infers the realm from row styling or class metadata. Rows with no
// realm marker are realm-agnostic.
func rowRealm(row *goquery.Selection) models.RealmTag {
	if v, ok := row.Attr("data-realm"); ok {
		return models.ParseRealmTag(v)
	}

	class, _ := row.Attr("class")
	switch {
	case strings.Contains(class, "realm-alb"), strings.Contains(class, "albion"):
		return models.RealmAlbion
	case strings.Contains(class, "realm-hib"), strings.Contains(class, "hibernia"):
		return models.RealmHibernia
	case strings.Contains(class, "realm-mid"), strings.Contains(class, "midgard"):
		return models.RealmMidgard
	}

	// Legacy markup colored the row text per realm instead of tagging it.
	if color, ok := row.Find("font[color]").First().Attr("color"); ok {
		switch strings.ToLower(color) {
		case "red", "#ff0000":
			return models.RealmAlbion
		case "green", "#00ff00":
			return models.RealmHibernia
		case "blue", "#0000ff":
			return models.RealmMidgard
		}
	}

	return models.RealmAll
}
