package weather

import (
	"net/url"
)

// Icon is the weather icon category shown on the panel
type Icon int

const (
	IconUnknown Icon = iota
	IconSunny
	IconCloudy
	IconRainy
	IconSnowy
)

// String returns a human-readable representation of the icon
func (i Icon) String() string {
	switch i {
	case IconSunny:
		return "sunny"
	case IconCloudy:
		return "cloudy"
	case IconRainy:
		return "rainy"
	case IconSnowy:
		return "snowy"
	default:
		return "unknown"
	}
}

// iconRanges are inclusive and disjoint. Codes 2 and 3 (clear night) have no
// icon of their own.
var iconRanges = []struct {
	lo, hi int
	icon   Icon
}{
	{0, 1, IconSunny},
	{4, 8, IconCloudy},
	{9, 13, IconRainy},
	{14, 17, IconSnowy},
}

// IconFor maps a weather code to its icon category
func IconFor(code int) Icon {
	for _, r := range iconRanges {
		if code >= r.lo && code <= r.hi {
			return r.icon
		}
	}
	return IconUnknown
}

// Query identifies what the weather service should report on
type Query struct {
	BaseURL  string `toml:"base_url" env:"BASE_URL"`
	Key      string `toml:"key" env:"KEY"`
	Location string `toml:"location" env:"LOCATION"`
	Language string `toml:"language" env:"LANGUAGE"`
	Unit     string `toml:"unit" env:"UNIT"`
}

// URL builds the request URL for the "now" endpoint
func (q Query) URL() string {
	v := url.Values{}
	v.Set("key", q.Key)
	v.Set("location", q.Location)
	v.Set("language", q.Language)
	v.Set("unit", q.Unit)
	return q.BaseURL + "?" + v.Encode()
}
