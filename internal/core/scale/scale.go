// Package scale maps wind speeds to named intensity categories. Each source
// uses its own threshold table: OpenWeatherMap-derived text alerts use a
// heuristic scale, NOAA uses a Saffir-Simpson-derived scale, and JMA uses its
// own classification. The tables intentionally disagree (OWM "Typhoon"
// starts at 118 km/h while NOAA "Category 2" starts at 119) and must not be
// unified; category is a pure function of wind speed and source.
package scale

// Source selects which threshold table Categorize applies.
type Source string

const (
	OpenWeatherMap Source = "OpenWeatherMap"
	NOAA           Source = "NOAA"
	JMA            Source = "JMA"
)

// breakpoint pairs a minimum wind speed (km/h, inclusive) with a category
// name. Tables are ordered strongest-first so the first match wins.
type breakpoint struct {
	minKmh int
	name   string
}

var openWeatherMapScale = []breakpoint{
	{220, "Super Typhoon"},
	{118, "Typhoon"},
	{89, "Severe Tropical Storm"},
	{62, "Tropical Storm"},
	{39, "Tropical Depression"},
}

var noaaScale = []breakpoint{
	{252, "Super Typhoon"},
	{209, "Category 5"},
	{178, "Category 4"},
	{154, "Category 3"},
	{119, "Category 2"},
	{63, "Category 1"},
	{39, "Tropical Storm"},
}

var jmaScale = []breakpoint{
	{194, "Violent Typhoon"},
	{158, "Very Strong Typhoon"},
	{118, "Typhoon"},
	{88, "Severe Tropical Storm"},
	{63, "Tropical Storm"},
}

// Categorize returns the category name for a wind speed under the given
// source's scale. Speeds below every breakpoint fall through to the source's
// floor category.
func Categorize(src Source, windSpeedKmh int) string {
	var table []breakpoint
	var floor string

	switch src {
	case NOAA:
		table, floor = noaaScale, "Tropical Depression"
	case JMA:
		table, floor = jmaScale, "Tropical Depression"
	default:
		table, floor = openWeatherMapScale, "Low Pressure Area"
	}

	for _, bp := range table {
		if windSpeedKmh >= bp.minKmh {
			return bp.name
		}
	}

	return floor
}
