package output

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/wave-spice/pkg/device"
)

// WriteGraph plots the time series of the given node indices (1-based) on
// one labeled figure and saves it as a PNG.
func WriteGraph(path string, sol *device.Mat, nodes []int, dt float64) error {
	pl := plot.New()
	pl.X.Label.Text = "time (s)"
	pl.Y.Label.Text = "voltage (V)"

	var series []interface{}
	for _, node := range nodes {
		if node < 1 || node > sol.Rows() {
			return fmt.Errorf("output: graph node %d out of range", node)
		}
		xys := make(plotter.XYs, sol.Cols())
		for n := 0; n < sol.Cols(); n++ {
			xys[n].X = float64(n) * dt
			xys[n].Y = sol.At(node-1, n)
		}
		series = append(series, fmt.Sprintf("n%d", node), xys)
	}

	if err := plotutil.AddLines(pl, series...); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := pl.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}
