package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/camelotware/herald/internal/models"
)

// detailFieldCount is the number of label/value fields Confidence is scored
// against: type, slot, level, quality, usable by.
const detailFieldCount = 5

// DetailResult is the fragment extracted from one item detail page. Fields
// the page did not provide stay nil; Confidence is the share of expected
// label/value fields that were actually found, so callers can flag
// low-confidence extractions when the site reorders its sections.
type DetailResult struct {
	Record     models.ItemRecord
	Merchants  []models.MerchantOffer
	Confidence float64
}

// ItemDetail parses an item detail page into a partially populated record.
// Missing sections degrade to nil fields; this function never fails.
func ItemDetail(content string) *DetailResult {
	result := &DetailResult{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return result
	}

	if name := strings.TrimSpace(doc.Find("h1.item-name").First().Text()); name != "" {
		result.Record.Name = name
	} else if name := strings.TrimSpace(doc.Find("h1").First().Text()); name != "" {
		result.Record.Name = name
	}

	details := doc.Find("div.item-details")
	if details.Length() == 0 {
		details = doc.Find("#item-details, .details")
	}
	if details.Length() > 0 {
		result.Confidence = parseDetailFields(textLines(details), &result.Record)
	}

	merchants := doc.Find("div.from-merchants")
	if merchants.Length() == 0 {
		merchants = doc.Find("#from-merchants, .merchants")
	}
	if merchants.Length() > 0 {
		result.Merchants = ParseMerchantLines(textLines(merchants))
	}

	result.Record.Category = categorize(doc, len(result.Merchants))

	return result
}

// parseDetailFields matches label/value pairs by case-insensitive substring
// on the key. Returns the confidence score for the fields found.
func parseDetailFields(lines []string, record *models.ItemRecord) float64 {
	found := 0
	var weapon models.WeaponStats

	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if value == "" {
			continue
		}

		switch {
		case strings.Contains(key, "damage type"):
			weapon.DamageType = value
		case strings.Contains(key, "type"):
			record.Type = &value
			found++
		case strings.Contains(key, "slot"):
			record.Slot = value
			found++
		case strings.Contains(key, "level"):
			record.Level = &value
			found++
		case strings.Contains(key, "quality"):
			record.Quality = &value
			found++
		case strings.Contains(key, "usable"):
			record.UsableBy = splitClasses(value)
			found++
		case strings.Contains(key, "model"):
			record.Model = &value
		case strings.Contains(key, "dps"):
			weapon.DPS = value
		case strings.Contains(key, "spd") || strings.Contains(key, "speed"):
			weapon.Speed = value
		case strings.Contains(key, "realm"):
			record.Realm = models.ParseRealmTag(value)
		}
	}

	if weapon != (models.WeaponStats{}) {
		record.Weapon = &weapon
	}

	return float64(found) / float64(detailFieldCount)
}

func splitClasses(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// categorize tags items that are not normally purchasable. Items with
// merchants need no category; otherwise the page's acquisition hints decide.
func categorize(doc *goquery.Document, merchantCount int) *models.ItemCategory {
	if merchantCount > 0 {
		return nil
	}

	text := strings.ToLower(doc.Text())
	var cat models.ItemCategory
	switch {
	case strings.Contains(text, "quest reward"):
		cat = models.CategoryQuestReward
	case strings.Contains(text, "event reward"):
		cat = models.CategoryEventReward
	default:
		cat = models.CategoryUnknown
	}
	return &cat
}

// textLines flattens a section into its consecutive non-empty text lines,
// in document order. Leaf elements each contribute one line; documents with
// no element structure fall back to newline splitting.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		for _, part := range strings.Split(s.Text(), "\n") {
			if part = strings.TrimSpace(part); part != "" {
				lines = append(lines, part)
			}
		}
	})

	if len(lines) == 0 {
		for _, part := range strings.Split(sel.Text(), "\n") {
			if part = strings.TrimSpace(part); part != "" {
				lines = append(lines, part)
			}
		}
	}

	return lines
}
