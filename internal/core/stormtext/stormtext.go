// Package stormtext extracts tropical-cyclone facts from free-text severe
// weather alerts. Alert prose is the least structured input the pipeline
// handles, so everything here is best-effort: a failed extraction returns a
// zero value and the caller decides whether the record is still usable.
package stormtext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// cycloneKeywords is the fixed list an alert must mention (in event or
// description, case-insensitively) to be treated as a storm candidate.
var cycloneKeywords = []string{
	"typhoon",
	"tropical cyclone",
	"hurricane",
	"tropical storm",
	"tropical depression",
	"super typhoon",
}

var (
	nameLeadRe = regexp.MustCompile(`(?i)(?:typhoon|tropical\s+cyclone|hurricane|tropical\s+storm)\s+`)
	properRe   = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`)
	numberedRe = regexp.MustCompile(`(?i)(?:typhoon|tc)\s*(\d+)`)

	kmhRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:km/h|kmh|kph)`)
	mphRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:mph)`)
	msRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:m/s|ms)`)
	knotsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:knots|kt)`)

	latRe      = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*°?\s*([NS])\b`)
	lonRe      = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*°?\s*([EW])\b`)
	pressureRe = regexp.MustCompile(`(?i)(\d{3,4})\s*(?:mb|hPa)`)
	movementRe = regexp.MustCompile(`(?i)moving\s+([NSEW]{1,3})(?:\s+at\s+(\d+)\s*(km/h|kmh|kph|mph|m/s|kt|knots))?`)
)

// boilerplateWords are title-cased words that follow a cyclone keyword in
// agency headlines without being part of the storm's name ("Typhoon Warning",
// "Tropical Storm Watch").
var boilerplateWords = map[string]bool{
	"Warning":   true,
	"Watch":     true,
	"Advisory":  true,
	"Alert":     true,
	"Bulletin":  true,
	"Update":    true,
	"Statement": true,
}

// IsTropicalCyclone reports whether the alert's event and description text
// mention any tropical-cyclone keyword.
func IsTropicalCyclone(event, description string) bool {
	haystack := strings.ToLower(event + " " + description)

	for _, kw := range cycloneKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}

	return false
}

// ExtractName pulls the storm name out of alert text: "Typhoon Kristine"
// yields "Kristine", numbered systems like "TC 05" yield "Typhoon 05", and
// text with no recognizable name yields "Unnamed System".
//
// Headlines repeat the cyclone keyword in boilerplate ("Typhoon Warning
// Typhoon Kristine intensifying"), so every keyword occurrence is tried and
// a candidate that is only boilerplate is skipped rather than returned. The
// keyword is matched case-insensitively but the name itself must be a
// title-cased word, so "TYPHOON WARNING in effect" yields no name.
func ExtractName(text string) string {
	for _, loc := range nameLeadRe.FindAllStringIndex(text, -1) {
		candidate := properRe.FindString(text[loc[1]:])
		if candidate == "" {
			continue
		}

		words := strings.Fields(candidate)
		for len(words) > 0 && boilerplateWords[words[len(words)-1]] {
			words = words[:len(words)-1]
		}

		if len(words) == 0 || boilerplateWords[words[0]] {
			continue
		}

		return strings.Join(words, " ")
	}

	if m := numberedRe.FindStringSubmatch(text); m != nil {
		return "Typhoon " + m[1]
	}

	return "Unnamed System"
}

// Movement is the storm's translational motion parsed from phrases like
// "moving NW at 20 km/h".
type Movement struct {
	Direction string
	SpeedKmh  int
}

// ExtractMovement parses the movement clause and returns the remaining text
// with that clause removed. Stripping matters: the movement speed carries the
// same unit suffix as the sustained-wind figure, and whichever appears first
// would otherwise win the wind scan.
func ExtractMovement(text string) (Movement, string) {
	m := movementRe.FindStringSubmatch(text)

	if m == nil {
		return Movement{Direction: "N/A"}, text
	}

	mv := Movement{Direction: strings.ToUpper(m[1])}

	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		switch strings.ToLower(m[3]) {
		case "mph":
			mv.SpeedKmh = convert.MphToKmh(float64(n))
		case "m/s":
			mv.SpeedKmh = convert.MsToKmh(float64(n))
		case "kt", "knots":
			mv.SpeedKmh = convert.KnotsToKmh(float64(n))
		default:
			mv.SpeedKmh = n
		}
	}

	return mv, strings.Replace(text, m[0], "", 1)
}

// ExtractWindSpeedKmh scans alert text for a sustained wind speed, trying
// each unit pattern in turn and converting to km/h. When no numeric figure
// exists it falls back to a fixed estimate keyed off the intensity wording,
// and 0 when even that fails.
func ExtractWindSpeedKmh(text string) int {
	if m := kmhRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}

	if m := mphRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return convert.MphToKmh(float64(n))
	}

	if m := msRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return convert.MsToKmh(float64(n))
	}

	if m := knotsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return convert.KnotsToKmh(float64(n))
	}

	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "super typhoon"):
		return 220
	case strings.Contains(lower, "typhoon"):
		return 120
	case strings.Contains(lower, "tropical storm"):
		return 65
	case strings.Contains(lower, "tropical depression"):
		return 45
	}

	return 0
}

// ExtractCoordinates looks for a latitude like "15.5°N" and a longitude like
// "125.0°E" anywhere in the text and returns them with the longitude
// normalized east-positive. The two scans are independent, so "125.0E 15.5N"
// and tables that put the longitude column first parse the same as the usual
// lat-lon order. The second return is false when either half is missing.
func ExtractCoordinates(text string) (domain.Coordinates, bool) {
	latMatch := latRe.FindStringSubmatch(text)
	lonMatch := lonRe.FindStringSubmatch(text)

	if latMatch == nil || lonMatch == nil {
		return domain.Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(latMatch[1], 64)
	if err != nil {
		return domain.Coordinates{}, false
	}

	lon, err := strconv.ParseFloat(lonMatch[1], 64)
	if err != nil {
		return domain.Coordinates{}, false
	}

	if strings.EqualFold(latMatch[2], "S") {
		lat = -lat
	}

	if strings.EqualFold(lonMatch[2], "W") {
		lon = -lon
	}

	return domain.Coordinates{
		Latitude:  lat,
		Longitude: convert.NormalizeLongitude(lon),
	}, true
}

// ExtractPressureHPa scans for a central pressure like "920 hPa"; the second
// return is false when none is present.
func ExtractPressureHPa(text string) (int, bool) {
	m := pressureRe.FindStringSubmatch(text)

	if m == nil {
		return 0, false
	}

	n, _ := strconv.Atoi(m[1])

	return n, true
}
