// Package analysis runs the DC operating-point and transient simulations
// over an assembled circuit.
package analysis

import (
	"fmt"
	"math"

	"github.com/edp1096/wave-spice/pkg/circuit"
	"github.com/edp1096/wave-spice/pkg/device"
	"github.com/edp1096/wave-spice/pkg/matrix"
)

const (
	// transient Newton-Raphson
	maxNR              = 32
	convergedThreshold = 1e-12

	// DC operating point runs a fixed iteration count
	dcIterations = 35
)

// Transient owns the solution matrix and the factorization workspace and
// drives the simulation: optional DC operating point into column 0, then
// Newton-Raphson per time step.
type Transient struct {
	Circuit *circuit.Circuit

	StartTime float64
	StopTime  float64
	TimeStep  float64
	Steps     int

	PerformDC bool

	// Solution column n holds the accepted solution of time step n.
	Solution *device.Mat

	// NonConverged lists time steps whose Newton-Raphson loop hit the
	// iteration cap; the last iterate is kept and the run continues.
	NonConverged []int

	lu      *matrix.LUPair[float64]
	scratch *device.Mat
	temp    *device.Mat
}

func NewTransient(ckt *circuit.Circuit, start, stop, dt float64, performDC bool) *Transient {
	steps := int((stop - start) / dt)
	size := ckt.MatrixSize()

	return &Transient{
		Circuit:   ckt,
		StartTime: start,
		StopTime:  stop,
		TimeStep:  dt,
		Steps:     steps,
		PerformDC: performDC,
		Solution:  matrix.New[float64](size, steps),
		lu:        matrix.NewLUPair[float64](size),
		scratch:   matrix.New[float64](size, 1),
		temp:      matrix.New[float64](size, 1),
	}
}

// Execute runs the whole simulation. On a singular system the error names
// the failing phase and time step; the solution up to the previous step is
// preserved.
func (tr *Transient) Execute() error {
	ckt := tr.Circuit
	ckt.SetTimestep(tr.TimeStep)

	if tr.PerformDC {
		if err := tr.solveOperatingPoint(); err != nil {
			return err
		}
	}

	for n := 1; n < tr.Steps; n++ {
		nr := 0
		for ; nr < maxNR; nr++ {
			stamp := ckt.GenerateNonLinearStamp(tr.Solution, n, tr.TimeStep)
			if err := stamp.G.LU(tr.lu); err != nil {
				return fmt.Errorf("time step %d (t=%g): %w", n, float64(n)*tr.TimeStep, err)
			}
			stamp.G.LeftDivide(stamp.S, tr.lu, tr.scratch, tr.temp)

			maxDiff := 0.0
			for k := 0; k < ckt.MatrixSize(); k++ {
				maxDiff = math.Max(maxDiff, math.Abs(tr.Solution.At(k, n)-tr.temp.At(k, 0)))
			}
			// the new iterate lands in the column before the convergence
			// check, so the next stamp always sees the newest values
			for k := 0; k < ckt.MatrixSize(); k++ {
				tr.Solution.Set(k, n, tr.temp.At(k, 0))
			}
			if maxDiff < convergedThreshold {
				break
			}
			ckt.InvalidateNonLinear()
		}
		if nr == maxNR {
			tr.NonConverged = append(tr.NonConverged, n)
		}

		ckt.UpdateTimeStep(tr.Solution, n, tr.TimeStep)
		if n == 1 {
			// one-shot rebuild: the pole-residue block has switched from
			// first- to second-order weights, changing its static stamp
			ckt.InvalidateStatic()
		}
	}

	return nil
}

// solveOperatingPoint runs the fixed DC Newton loop. The DC system is
// larger than the transient one: inductors contribute extra current
// unknowns for this phase only.
func (tr *Transient) solveOperatingPoint() error {
	ckt := tr.Circuit
	size := ckt.DCMatrixSize()

	dcSol := matrix.New[float64](size, 1)
	scratch := matrix.New[float64](size, 1)
	lu := matrix.NewLUPair[float64](size)

	for nr := 0; nr < dcIterations; nr++ {
		stamp := ckt.GenerateDCStamp(dcSol, ckt.NumCurrents)
		if err := stamp.G.LU(lu); err != nil {
			return fmt.Errorf("dc operating point: %w", err)
		}
		stamp.G.LeftDivide(stamp.S, lu, scratch, dcSol)
	}

	for k := 0; k < ckt.MatrixSize(); k++ {
		tr.Solution.Set(k, 0, dcSol.At(k, 0))
	}
	ckt.UpdateDCState(dcSol)

	return nil
}
