// Package output writes the simulation results: the tab-separated solution
// table and the optional per-directive graphs.
package output

import (
	"bufio"
	"fmt"
	"os"

	"github.com/edp1096/wave-spice/pkg/device"
)

// WriteTable dumps the solution matrix as a tab-separated table with one
// row per time step: time, node voltages, branch currents.
func WriteTable(path string, sol *device.Mat, numNodes, numCurrents int, dt float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprint(w, "time")
	for i := 1; i <= numNodes; i++ {
		fmt.Fprintf(w, "\tn%d", i)
	}
	for i := 1; i <= numCurrents; i++ {
		fmt.Fprintf(w, "\ti%d", i)
	}

	for n := 0; n < sol.Cols(); n++ {
		fmt.Fprintf(w, "\n%.9g", float64(n)*dt)
		for i := 0; i < numNodes+numCurrents; i++ {
			fmt.Fprintf(w, "\t%.9g", sol.At(i, n))
		}
	}
	fmt.Fprintln(w)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}
