package checker

import "strings"

// Region identifies which carrier area-search site serves an address.
type Region string

const (
	RegionEast Region = "east"
	RegionWest Region = "west"
)

// regionEndpoint bundles the per-region page coordinates the automation
// drives. Selectors are kept in one place because the carrier occasionally
// reshuffles its form markup.
type regionEndpoint struct {
	searchURL      string
	zipSelector    string
	submitSelector string
	resultSelector string
}

var endpoints = map[Region]regionEndpoint{
	RegionEast: {
		searchURL:      "https://flets.com/app2/cao/input/",
		zipSelector:    `input[name="zipCode"]`,
		submitSelector: `button[type="submit"]`,
		resultSelector: `#judgeResult`,
	},
	RegionWest: {
		searchURL:      "https://flets-w.com/cart/search/",
		zipSelector:    `input[name="postalCode"]`,
		submitSelector: `button[type="submit"]`,
		resultSelector: `.judge-result`,
	},
}

// RegionForZipcode picks the serving region from the postal code's leading
// digit. Codes 0xx-4xx fall in the eastern service area, 5xx-9xx in the
// western one.
func RegionForZipcode(zipcode string) Region {
	trimmed := strings.TrimSpace(zipcode)
	if trimmed == "" {
		return RegionEast
	}
	if trimmed[0] >= '0' && trimmed[0] <= '4' {
		return RegionEast
	}
	return RegionWest
}
