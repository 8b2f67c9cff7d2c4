package sky

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HMSToDegrees converts hours, minutes, seconds of right ascension to degrees.
func HMSToDegrees(h, m, s float64) float64 {
	return (h + m/60 + s/3600) * DegreesPerHour
}

// DMSToDegrees converts degrees, arcminutes, arcseconds to decimal degrees.
//
// The sign of d governs the whole angle, including negative zero:
// DMSToDegrees(math.Copysign(0, -1), 30, 0) == -0.5.
func DMSToDegrees(d, m, s float64) float64 {
	return DMSToDegreesSigned(math.Signbit(d), math.Abs(d), m, s)
}

// DMSToDegreesSigned converts an explicitly signed sexagesimal angle.
// The magnitudes of d, m and s are used; negative selects the sign.
func DMSToDegreesSigned(negative bool, d, m, s float64) float64 {
	v := math.Abs(d) + math.Abs(m)/60 + math.Abs(s)/3600
	if negative {
		return -v
	}
	return v
}

// DegreesToHMS converts an RA in degrees to hours, minutes, seconds.
// The input is normalized to [0,360) first.
func DegreesToHMS(deg float64) (h, m int, s float64) {
	hours := NormalizeRA(deg) / DegreesPerHour
	h = int(hours)
	rem := (hours - float64(h)) * 60
	m = int(rem)
	s = (rem - float64(m)) * 60
	return h, m, s
}

// DegreesToDMS converts decimal degrees to a sign and degrees, arcminutes,
// arcseconds of the absolute value.
func DegreesToDMS(deg float64) (negative bool, d, m int, s float64) {
	negative = math.Signbit(deg)
	abs := math.Abs(deg)
	d = int(abs)
	rem := (abs - float64(d)) * 60
	m = int(rem)
	s = (rem - float64(m)) * 60
	return negative, d, m, s
}

// FormatHMS renders an RA as "HHhMMmSS.SSs".
func FormatHMS(deg float64) string {
	h, m, s := DegreesToHMS(deg)
	return fmt.Sprintf("%02dh%02dm%05.2fs", h, m, s)
}

// FormatDMS renders a declination as "+DD°MM'SS.S\"".
func FormatDMS(deg float64) string {
	neg, d, m, s := DegreesToDMS(deg)
	sign := "+"
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d°%02d'%04.1f\"", sign, d, m, s)
}

// ParseHMS parses "HH MM SS.S" or "HH:MM:SS.S" into degrees.
func ParseHMS(str string) (float64, error) {
	_, parts, err := splitSexagesimal(str)
	if err != nil {
		return 0, fmt.Errorf("parse hms %q: %w", str, err)
	}
	if parts[0] < 0 || parts[0] >= 24 {
		return 0, fmt.Errorf("parse hms %q: hours out of range", str)
	}
	return HMSToDegrees(parts[0], parts[1], parts[2]), nil
}

// ParseDMS parses "[+-]DD MM SS.S" or "[+-]DD:MM:SS.S" into degrees.
// A leading minus applies to the whole angle, so "-00 30 00" is -0.5.
func ParseDMS(str string) (float64, error) {
	negative, parts, err := splitSexagesimal(str)
	if err != nil {
		return 0, fmt.Errorf("parse dms %q: %w", str, err)
	}
	v := DMSToDegreesSigned(negative, parts[0], parts[1], parts[2])
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("parse dms %q: declination out of range", str)
	}
	return v, nil
}

// splitSexagesimal returns the sign and the three unsigned fields.
// Missing trailing fields are zero.
func splitSexagesimal(str string) (bool, [3]float64, error) {
	var out [3]float64

	str = strings.TrimSpace(str)
	negative := false
	switch {
	case strings.HasPrefix(str, "-"):
		negative = true
		str = str[1:]
	case strings.HasPrefix(str, "+"):
		str = str[1:]
	}

	fields := strings.FieldsFunc(str, func(r rune) bool {
		return r == ' ' || r == ':' || r == '\t'
	})
	if len(fields) == 0 || len(fields) > 3 {
		return false, out, fmt.Errorf("expected 1 to 3 fields, got %d", len(fields))
	}

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return false, out, fmt.Errorf("field %d: %w", i+1, err)
		}
		if v < 0 {
			return false, out, fmt.Errorf("field %d: sign only allowed on the first field", i+1)
		}
		if i > 0 && v >= 60 {
			return false, out, fmt.Errorf("field %d: must be below 60", i+1)
		}
		out[i] = v
	}
	return negative, out, nil
}
