package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit is a display unit. Stored geometry never depends on it.
type Unit string

const (
	MM Unit = "mm"
	CM Unit = "cm"
	M  Unit = "m"
)

// ErrInvalidMeasurement is returned when an input string is not a length.
var ErrInvalidMeasurement = errors.New("invalid measurement")

var measurementPattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s*(mm|cm|m)?$`)

// ParseUnit resolves a display unit name.
func ParseUnit(name string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(name))); u {
	case MM, CM, M:
		return u, nil
	}
	return "", fmt.Errorf("unknown unit %q", name)
}

// perMM is how many millimeters one unit holds.
func (u Unit) perMM() float64 {
	switch u {
	case CM:
		return 10
	case M:
		return 1000
	default:
		return 1
	}
}

// DefaultDecimals is the precision FormatMeasurement uses when asked for a
// negative number of decimals.
func (u Unit) DefaultDecimals() int {
	switch u {
	case CM:
		return 1
	case M:
		return 2
	default:
		return 0
	}
}

// Precision is the largest rounding error FormatMeasurement introduces, in mm.
func (u Unit) Precision(decimals int) float64 {
	if u == MM {
		return 0.5
	}
	if decimals < 0 {
		decimals = u.DefaultDecimals()
	}
	return 0.5 * u.perMM() / math.Pow10(decimals)
}

// FormatMeasurement renders a millimeter value in unit u. Millimeters are
// always whole numbers; cm and m use the given number of decimals.
func FormatMeasurement(valueMM float64, u Unit, decimals int) string {
	switch u {
	case CM, M:
		if decimals < 0 {
			decimals = u.DefaultDecimals()
		}
		return strconv.FormatFloat(valueMM/u.perMM(), 'f', decimals, 64) + " " + string(u)
	default:
		return strconv.FormatFloat(math.Round(valueMM), 'f', 0, 64) + " " + string(MM)
	}
}

// ParseToMillimeters accepts "<number><mm|cm|m>?" with optional whitespace
// between number and unit. A bare number is read as millimeters.
func ParseToMillimeters(input string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	match := measurementPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMeasurement, input)
	}
	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMeasurement, input)
	}
	u := MM
	if match[2] != "" {
		u = Unit(match[2])
	}
	return v * u.perMM(), nil
}
