package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/wave-spice/pkg/circuit"
	"github.com/edp1096/wave-spice/pkg/device"
)

// An ideal thru 2-port (S = [[0,1],[1,0]] at all frequencies) reproduces
// the port-1 waveform at port 2 into a matched load.
func TestSParamThruLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thru.s2p")
	var sb strings.Builder
	sb.WriteString("# Hz S RI R 50\n")
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&sb, "%g 0 0 1 0 1 0 0 0\n", float64(i)*1e9)
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	block, err := device.NewSParamBlock("S1", 0.01, [][2]int{{1, 0}, {2, 0}}, 2, path)
	require.NoError(t, err)

	ckt := circuit.New(2, 3, 0)
	ckt.AddElement(device.NewSinusoidalVoltageSource("VS1", 1, 0, 0.5, 1e6, 0, 0, 1))
	ckt.AddElement(block)
	ckt.AddElement(device.NewResistor("RL", 2, 0, 50, 0))

	tr := NewTransient(ckt, 0, 1e-7, 1e-9, false)
	require.NoError(t, tr.Execute())

	for n := 1; n < tr.Steps; n++ {
		v1 := tr.Solution.At(0, n)
		v2 := tr.Solution.At(1, n)
		require.InDelta(t, v1, v2, 5e-6, "step %d", n)
	}
}

// A remainder-only pole-residue block is a constant reflection coefficient,
// i.e. a plain resistance z_ref*(1+d)/(1-d); here 150 ohm in a divider.
func TestSParamVFRemainderOnlyDivider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fit.prr")
	table := "50\n" +
		"0.5 0\n" + // remainder
		"-1e12 0\n" + // one far-away pole with
		"1e-30 0\n" // a vanishing residue
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	build := func() *circuit.Circuit {
		block, err := device.NewSParamBlockVF("SVP1", [][2]int{{2, 0}}, 2, path)
		require.NoError(t, err)

		ckt := circuit.New(2, 2, 0)
		ckt.AddElement(device.NewVoltageSource("V1", 1, 0, 1, 1))
		ckt.AddElement(device.NewResistor("R1", 1, 2, 100, 0))
		ckt.AddElement(block)
		return ckt
	}

	tr := NewTransient(build(), 0, 1e-4, 1e-6, false)
	require.NoError(t, tr.Execute())

	// 1 V across 100 ohm + 150 ohm
	require.InDelta(t, 0.6, tr.Solution.At(1, tr.Steps-1), 1e-6)

	// and the DC variant agrees
	trDC := NewTransient(build(), 0, 1e-4, 1e-6, true)
	require.NoError(t, trDC.Execute())
	require.InDelta(t, 0.6, trDC.Solution.At(1, 0), 1e-6)
}
