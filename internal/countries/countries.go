// Package countries normalizes free-text country names to the canonical
// short-name vocabulary used across all persisted fields and index payloads.
package countries

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// aliases maps lowercased raw names to the canonical short name. Canonical
// names map to themselves so normalization is idempotent.
var aliases = map[string]string{
	"usa":                      "USA",
	"united states":            "USA",
	"united states of america": "USA",
	"u.s.":                     "USA",
	"u.s.a.":                   "USA",
	"us":                       "USA",
	"america":                  "USA",
	"uk":                       "UK",
	"united kingdom":           "UK",
	"great britain":            "UK",
	"britain":                  "UK",
	"england":                  "UK",
	"uae":                      "UAE",
	"united arab emirates":     "UAE",
	"emirates":                 "UAE",
	"south korea":              "South Korea",
	"korea":                    "South Korea",
	"republic of korea":        "South Korea",
	"saudi arabia":             "Saudi Arabia",
	"kingdom of saudi arabia":  "Saudi Arabia",
	"ksa":                      "Saudi Arabia",
	"czech republic":           "Czech Republic",
	"czechia":                  "Czech Republic",
	"netherlands":              "Netherlands",
	"the netherlands":          "Netherlands",
	"holland":                  "Netherlands",
	"turkey":                   "Turkey",
	"turkiye":                  "Turkey",
	"türkiye":                  "Turkey",
	"russia":                   "Russia",
	"russian federation":       "Russia",
	"philippines":              "Philippines",
	"the philippines":          "Philippines",
	"germany":                  "Germany",
	"federal republic of germany": "Germany",
	"egypt":                       "Egypt",
	"arab republic of egypt":      "Egypt",
	"iran":                        "Iran",
	"islamic republic of iran":    "Iran",
	"syria":                       "Syria",
	"syrian arab republic":        "Syria",
	"china":                       "China",
	"people's republic of china":  "China",
	"prc":                         "China",
	"vietnam":                     "Vietnam",
	"viet nam":                    "Vietnam",
	"ivory coast":                 "Ivory Coast",
	"cote d'ivoire":               "Ivory Coast",
	"côte d'ivoire":               "Ivory Coast",
	"north macedonia":             "North Macedonia",
	"macedonia":                   "North Macedonia",
	"palestine":                   "Palestine",
	"state of palestine":          "Palestine",
	"laos":                        "Laos",
	"lao pdr":                     "Laos",
	"brunei":                      "Brunei",
	"brunei darussalam":           "Brunei",
	"cape verde":                  "Cape Verde",
	"cabo verde":                  "Cape Verde",
	"east timor":                  "East Timor",
	"timor-leste":                 "East Timor",
	"dr congo":                    "DR Congo",
	"democratic republic of the congo": "DR Congo",
	"drc": "DR Congo",
}

var titleCaser = cases.Title(language.English)

// Normalize returns the canonical short name for a country. Names outside
// the alias table pass through title-cased, with a leading "The " dropped.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	key := strings.ToLower(trimmed)
	key = strings.TrimPrefix(key, "the ")
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return titleCaser.String(key)
}

// NormalizeAll normalizes every entry in a country list, dropping empties.
// Applying it to an already-normalized list returns the same list.
func NormalizeAll(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if normalized := Normalize(n); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}
