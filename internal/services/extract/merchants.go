package extract

import (
	"regexp"
	"strings"

	"github.com/camelotware/herald/internal/models"
	"github.com/camelotware/herald/internal/services/price"
)

var zoneRe = regexp.MustCompile(`^in\s+(.+?)(?:\s+\(([^)]+)\))?$`)

// ParseMerchantLines runs the positional state machine over the consecutive
// non-empty text lines of a "From Merchants" section:
//
//	a line containing "Level:" starts a new merchant block, taking the
//	preceding line as the merchant name; "in " sets the zone; "Loc:" sets
//	the location; "Price:" terminates the block.
//
// A merchant is appended only once its price line has been consumed, so a
// truncated trailing block is dropped rather than half-reported.
func ParseMerchantLines(lines []string) []models.MerchantOffer {
	var offers []models.MerchantOffer
	var current *models.MerchantOffer
	prev := ""

	for _, line := range lines {
		switch {
		case strings.Contains(line, "Level:"):
			current = &models.MerchantOffer{Merchant: prev}

		case current != nil && strings.HasPrefix(line, "in "):
			full, abbr := parseZone(line)
			current.ZoneFull = full
			current.ZoneAbbr = abbr

		case current != nil && strings.HasPrefix(line, "Loc:"):
			loc := strings.TrimSpace(strings.TrimPrefix(line, "Loc:"))
			if loc != "" {
				current.Location = &loc
			}

		case current != nil && strings.HasPrefix(line, "Price:"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "Price:"))
			if info, ok := price.Parse(text); ok {
				current.Price = info
			}
			offers = append(offers, *current)
			current = nil
		}
		prev = line
	}

	return offers
}

// parseZone splits "in Tir na Nog (TNN)" into the full zone name and its
// abbreviation. Zones without a parenthesized abbreviation reuse the full
// name for both.
func parseZone(line string) (full, abbr string) {
	m := zoneRe.FindStringSubmatch(line)
	if len(m) == 0 {
		full = strings.TrimSpace(strings.TrimPrefix(line, "in "))
		return full, full
	}
	full = strings.TrimSpace(m[1])
	abbr = strings.TrimSpace(m[2])
	if abbr == "" {
		abbr = full
	}
	return full, abbr
}
