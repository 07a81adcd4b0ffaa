package activity

import "strings"

// NeutralFlag is returned for countries missing from the roster. Never an
// error: an unknown country still renders.
const NeutralFlag = "🌍"

// countryFlags maps member-state names to their flag glyphs.
var countryFlags = map[string]string{
	"algeria":       "🇩🇿",
	"angola":        "🇦🇴",
	"benin":         "🇧🇯",
	"botswana":      "🇧🇼",
	"burkina faso":  "🇧🇫",
	"burundi":       "🇧🇮",
	"cameroon":      "🇨🇲",
	"chad":          "🇹🇩",
	"congo":         "🇨🇬",
	"cote d'ivoire": "🇨🇮",
	"djibouti":      "🇩🇯",
	"drc":           "🇨🇩",
	"egypt":         "🇪🇬",
	"ethiopia":      "🇪🇹",
	"gabon":         "🇬🇦",
	"gambia":        "🇬🇲",
	"ghana":         "🇬🇭",
	"guinea":        "🇬🇳",
	"kenya":         "🇰🇪",
	"lesotho":       "🇱🇸",
	"liberia":       "🇱🇷",
	"libya":         "🇱🇾",
	"madagascar":    "🇲🇬",
	"malawi":        "🇲🇼",
	"mali":          "🇲🇱",
	"mauritania":    "🇲🇷",
	"mauritius":     "🇲🇺",
	"morocco":       "🇲🇦",
	"mozambique":    "🇲🇿",
	"namibia":       "🇳🇦",
	"niger":         "🇳🇪",
	"nigeria":       "🇳🇬",
	"rwanda":        "🇷🇼",
	"senegal":       "🇸🇳",
	"sierra leone":  "🇸🇱",
	"somalia":       "🇸🇴",
	"south africa":  "🇿🇦",
	"south sudan":   "🇸🇸",
	"sudan":         "🇸🇩",
	"tanzania":      "🇹🇿",
	"togo":          "🇹🇬",
	"tunisia":       "🇹🇳",
	"uganda":        "🇺🇬",
	"zambia":        "🇿🇲",
	"zimbabwe":      "🇿🇼",
}

// Flag resolves a country name to its flag glyph, case-insensitively.
func Flag(country string) string {
	if flag, ok := countryFlags[strings.ToLower(strings.TrimSpace(country))]; ok {
		return flag
	}
	return NeutralFlag
}
