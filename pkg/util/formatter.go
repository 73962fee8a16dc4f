// Package util holds small presentation helpers for the CLI output.
package util

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// FormatValueFactor renders a value with an engineering prefix, e.g.
// 0.0032 V -> "3.200 mV".
func FormatValueFactor[T constraints.Float](value T, unit string) string {
	v := float64(value)
	absValue := math.Abs(v)
	switch {
	case absValue >= 1 || absValue == 0:
		return fmt.Sprintf("%.3f %s", v, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", v*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", v*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", v*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", v*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", v, unit)
	}
}

// FormatFrequency renders a frequency with a fixed-width unit suffix.
func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e9:
		return fmt.Sprintf("%7.3f GHz", freq/1e9)
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%7.3f Hz ", freq)
	}
}
