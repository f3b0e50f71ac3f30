// Package units defines the physical length scale used for all spatial
// quantities. Coordinates and distances are carried as float32 microns;
// Length gives API parameters a distinct type so mixing a length with a
// bare count or ratio fails at compile time.
package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Length is a physical length in canonical units of micrometers.
type Length float32

const (
	Micrometer Length = 1
	Millimeter Length = 1000
	Meter      Length = 1e6
)

var ErrIncompatibleUnits = errors.New("incompatible units")

func Microns(v float32) Length     { return Length(v) }
func Millimeters(v float32) Length { return Length(v) * Millimeter }

// Microns returns the raw scalar value in micrometers.
func (l Length) Microns() float32 { return float32(l) }

// In converts the length to a multiple of the given display unit.
func (l Length) In(unit Length) float32 { return float32(l / unit) }

func (l Length) String() string {
	switch {
	case l/Meter >= 1 || l/Meter <= -1:
		return formatScalar(l.In(Meter)) + "m"
	case l/Millimeter >= 1 || l/Millimeter <= -1:
		return formatScalar(l.In(Millimeter)) + "mm"
	default:
		return formatScalar(l.In(Micrometer)) + "um"
	}
}

func formatScalar(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

var suffixes = []struct {
	symbol string
	unit   Length
}{
	{"um", Micrometer},
	{"µm", Micrometer},
	{"mm", Millimeter},
	{"m", Meter},
}

// Parse reads a length such as "1.2mm", "25um" or "0.5 m". A bare number
// or an unrecognized unit symbol is rejected with ErrIncompatibleUnits so
// dimensionless values cannot silently enter spatial arithmetic.
func Parse(s string) (Length, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty length", ErrIncompatibleUnits)
	}
	for _, suf := range suffixes {
		if !strings.HasSuffix(trimmed, suf.symbol) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(trimmed, suf.symbol))
		if num == "" {
			continue
		}
		v, err := strconv.ParseFloat(num, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrIncompatibleUnits, s)
		}
		return Length(v) * suf.unit, nil
	}
	return 0, fmt.Errorf("%w: %q has no recognized length unit", ErrIncompatibleUnits, s)
}
