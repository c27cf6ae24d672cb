package flights

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// flightDetail is one airborne aircraft prepared for the report.
type flightDetail struct {
	callsign      string
	icao24        string
	originCountry string
	modelInfo     string
	categoryStr   string
	isHelicopter  bool
	lastContact   string
	latitude      float64
	longitude     float64
	altitudeFeet  *float64
	velocityKmh   *float64
	headingDeg    *float64
	distanceKm    float64
	bearingDeg    float64
}

// Report fetches the aircraft around lat/lon and renders a human-readable
// summary, nearest first. Only airborne aircraft are included. An empty sky
// is a report, not an error.
func (c *Client) Report(ctx context.Context, lat, lon, radiusKm float64) (string, error) {
	states, err := c.StatesWithin(ctx, lat, lon, radiusKm)
	if err != nil {
		return "", err
	}
	if len(states) == 0 {
		return fmt.Sprintf("No flight information found within %g km radius around (%.4f, %.4f) at this time. "+
			"The OpenSky Network might not have data for this area or period, or the API returned an empty set.",
			radiusKm, lat, lon), nil
	}

	var details []flightDetail
	for _, s := range states {
		if s.OnGround || s.Latitude == nil || s.Longitude == nil {
			continue
		}
		callsign := s.Callsign
		if callsign == "" {
			callsign = "N/A"
		}
		d := flightDetail{
			callsign:      callsign,
			icao24:        s.ICAO24,
			originCountry: s.OriginCountry,
			modelInfo:     c.Metadata(ctx, s.ICAO24),
			categoryStr:   CategoryName(s.Category),
			isHelicopter:  s.Category != nil && *s.Category == helicopterCategory,
			lastContact:   time.Unix(s.LastContact, 0).UTC().Format("2006-01-02 15:04:05 UTC"),
			latitude:      *s.Latitude,
			longitude:     *s.Longitude,
			distanceKm:    HaversineKm(lat, lon, *s.Latitude, *s.Longitude),
			bearingDeg:    Bearing(lat, lon, *s.Latitude, *s.Longitude),
		}
		if s.BaroAltitudeM != nil {
			feet := *s.BaroAltitudeM * 3.28084
			d.altitudeFeet = &feet
		}
		if s.VelocityMPS != nil {
			kmh := *s.VelocityMPS * 3.6
			d.velocityKmh = &kmh
		}
		d.headingDeg = s.HeadingDeg
		details = append(details, d)
	}

	if len(details) == 0 {
		return fmt.Sprintf("No airborne flight information found within %g km radius around (%.4f, %.4f) at this time. "+
			"All detected aircraft might be on the ground or no data is available.",
			radiusKm, lat, lon), nil
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].distanceKm < details[j].distanceKm
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Flight information within %g km radius of your location (Lat: %.4f, Lon: %.4f):\n", radiusKm, lat, lon)
	fmt.Fprintf(&b, "Total airborne flights found: %d\n\n", len(details))
	for i, f := range details {
		icon := " ✈️"
		if f.isHelicopter {
			icon = " 🚁"
		}
		fmt.Fprintf(&b, "  - Callsign: %s, ICAO24: %s, Country: %s\n", f.callsign, f.icao24, f.originCountry)
		fmt.Fprintf(&b, "    Distance from you: %.2f km, Look in this direction: %s (%.1f°)\n",
			f.distanceKm, Cardinal(f.bearingDeg), f.bearingDeg)
		fmt.Fprintf(&b, "    Model: %s\n", f.modelInfo)
		fmt.Fprintf(&b, "    Type: %s%s\n", f.categoryStr, icon)
		fmt.Fprintf(&b, "    Position: Lat %.4f, Lon %.4f\n", f.latitude, f.longitude)
		fmt.Fprintf(&b, "    Altitude: %s feet, Speed: %s km/h, Heading: %s\n",
			formatFloat(f.altitudeFeet, 0), formatFloat(f.velocityKmh, 0), formatDeg(f.headingDeg))
		if i < len(details)-1 {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

func formatDeg(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f°", *v)
}
