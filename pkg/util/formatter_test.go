package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatValueFactor(t *testing.T) {
	require.Equal(t, "3.200 mV", FormatValueFactor(0.0032, "V"))
	require.Equal(t, "1.500 s", FormatValueFactor(1.5, "s"))
	require.Equal(t, "10.000 us", FormatValueFactor(1e-5, "s"))
	require.Equal(t, "2.500 nA", FormatValueFactor(2.5e-9, "A"))
	require.Equal(t, "0.000 V", FormatValueFactor(0.0, "V"))
	require.Equal(t, "-42.000 ms", FormatValueFactor(-0.042, "s"))
}

func TestFormatFrequency(t *testing.T) {
	require.Equal(t, "  5.033 kHz", FormatFrequency(5033))
	require.Equal(t, "  1.200 MHz", FormatFrequency(1.2e6))
	require.Equal(t, "  2.000 GHz", FormatFrequency(2e9))
	require.Equal(t, " 50.000 Hz ", FormatFrequency(50))
}
