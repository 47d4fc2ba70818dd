// Package price normalizes free-text price strings from item detail pages
// into canonical {currency, amount, display} triples.
package price

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/camelotware/herald/internal/models"
)

// Coin values in copper, the smallest unit of the coin composite.
const (
	CopperPerPlatinum = 100_000_000
	CopperPerGold     = 100_000
	CopperPerSilver   = 100
)

// CurrencyGold is the canonical currency name for coin-denominated prices.
const CurrencyGold = "Gold"

// family maps keyword tokens found in price text to a canonical currency
// name. Families are tested in order and the first match wins.
type family struct {
	currency string
	tokens   []string
}

// Ordering is a deliberate tie-break: the rarest, most specific tokens come
// first because some keywords ("root") are substrings of unrelated words,
// and the coin composite parser is the catch-all that must run last.
var families = []family{
	{"Grimoire Pages", []string{"grimoire"}},
	{"Glass", []string{"glass"}},
	{"Dragon Scales", []string{"scale"}},
	{"Emerald Seals", []string{"seal"}},
	{"Bounty Points", []string{"bounty", "bp"}},
	{"Ancient Roots", []string{"root"}},
}

var (
	amountRe   = regexp.MustCompile(`(\d+)`)
	platinumRe = regexp.MustCompile(`\b(\d+)\s*p\b`)
	goldRe     = regexp.MustCompile(`\b(\d+)\s*g\b`)
	silverRe   = regexp.MustCompile(`\b(\d+)\s*s\b`)
	copperRe   = regexp.MustCompile(`\b(\d+)\s*c\b`)
)

// Parse converts free-text price text into a normalized PriceInfo. The
// second return is false when the text matches no known currency format;
// callers treat that as "no price", not an error.
func Parse(text string) (*models.PriceInfo, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, false
	}

	for _, f := range families {
		for _, token := range f.tokens {
			if strings.Contains(normalized, token) {
				m := amountRe.FindString(normalized)
				if m == "" {
					return nil, false
				}
				amount, err := strconv.ParseInt(m, 10, 64)
				if err != nil {
					return nil, false
				}
				return &models.PriceInfo{
					Currency: f.currency,
					Amount:   amount,
					Display:  fmt.Sprintf("%d %s", amount, f.currency),
				}, true
			}
		}
	}

	return parseCoins(normalized)
}

// parseCoins handles the platinum/gold/silver/copper composite. Each unit
// suffix is extracted independently so "50g 25s", "5p, 10c" and any other
// subset all parse; the sum is expressed in copper.
func parseCoins(text string) (*models.PriceInfo, bool) {
	var total int64
	matched := false

	extract := func(re *regexp.Regexp, copperValue int64) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return
		}
		total += v * copperValue
		matched = true
	}

	extract(platinumRe, CopperPerPlatinum)
	extract(goldRe, CopperPerGold)
	extract(silverRe, CopperPerSilver)
	extract(copperRe, 1)

	if !matched {
		return nil, false
	}

	return &models.PriceInfo{
		Currency: CurrencyGold,
		Amount:   total,
		Display:  RenderCoins(total),
	}, true
}

// RenderCoins renders a copper amount back into its non-zero coin
// components, e.g. "5p, 50g, 25s, 10c". Zero renders as "0c".
func RenderCoins(copper int64) string {
	if copper <= 0 {
		return "0c"
	}

	p := copper / CopperPerPlatinum
	copper %= CopperPerPlatinum
	g := copper / CopperPerGold
	copper %= CopperPerGold
	s := copper / CopperPerSilver
	c := copper % CopperPerSilver

	parts := make([]string, 0, 4)
	if p > 0 {
		parts = append(parts, fmt.Sprintf("%dp", p))
	}
	if g > 0 {
		parts = append(parts, fmt.Sprintf("%dg", g))
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	if c > 0 {
		parts = append(parts, fmt.Sprintf("%dc", c))
	}

	return strings.Join(parts, ", ")
}
