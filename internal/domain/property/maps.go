package property

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Coordinates is a WGS84 point extracted from a maps link.
type Coordinates struct {
	Lat float64
	Lng float64
}

var (
	pinPattern    = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	centerPattern = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)
)

var coordinateParams = []string{"q", "query", "ll", "destination", "center"}

// ParseMapsURL extracts coordinates from a Google Maps style link. The dropped
// pin (!3d..!4d) wins over the viewport centre (@lat,lng), which wins over
// query parameters.
func ParseMapsURL(raw string) (Coordinates, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Coordinates{}, false
	}

	if m := pinPattern.FindStringSubmatch(raw); m != nil {
		if c, ok := parsePair(m[1], m[2]); ok {
			return c, true
		}
	}
	if m := centerPattern.FindStringSubmatch(raw); m != nil {
		if c, ok := parsePair(m[1], m[2]); ok {
			return c, true
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Coordinates{}, false
	}
	query := u.Query()
	for _, key := range coordinateParams {
		v := query.Get(key)
		if v == "" {
			continue
		}
		parts := strings.SplitN(v, ",", 2)
		if len(parts) != 2 {
			continue
		}
		if c, ok := parsePair(parts[0], parts[1]); ok {
			return c, true
		}
	}
	return Coordinates{}, false
}

func parsePair(latStr, lngStr string) (Coordinates, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinates{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Coordinates{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}
