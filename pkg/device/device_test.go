package device

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/wave-spice/pkg/matrix"
)

// solutionWith builds a solution matrix with the given node voltages in
// every column.
func solutionWith(rows, cols int, values map[int]float64) *Mat {
	sol := matrix.New[float64](rows, cols)
	for n := 0; n < cols; n++ {
		for row, v := range values {
			sol.Set(row, n, v)
		}
	}
	return sol
}

func stampEqual(t *testing.T, want, got *Stamp) {
	t.Helper()
	size := want.SizeGA + want.SizeGD
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			require.InDelta(t, want.G.At(i, j), got.G.At(i, j), 1e-15, "G(%d,%d)", i, j)
		}
		require.InDelta(t, want.S.At(i, 0), got.S.At(i, 0), 1e-15, "s(%d)", i)
	}
}

func TestResistorGroupIStamp(t *testing.T) {
	r := NewResistor("R1", 1, 2, 100, 0)
	st := NewStamp(2, 0)
	r.AddStaticStamp(st)

	g := 0.01
	require.Equal(t, g, st.G.At(0, 0))
	require.Equal(t, g, st.G.At(1, 1))
	require.Equal(t, -g, st.G.At(0, 1))
	require.Equal(t, -g, st.G.At(1, 0))
}

func TestResistorGroundedNode(t *testing.T) {
	r := NewResistor("R1", 1, 0, 50, 0)
	st := NewStamp(1, 0)
	r.AddStaticStamp(st)

	require.Equal(t, 0.02, st.G.At(0, 0))
}

func TestResistorGroupIIStamp(t *testing.T) {
	r := NewResistor("R1", 1, 2, 100, 1)
	st := NewStamp(2, 1)
	r.AddStaticStamp(st)

	// KVL row: v1 - v2 - R*i = 0, plus KCL columns
	require.Equal(t, 1.0, st.G.At(0, 2))
	require.Equal(t, 1.0, st.G.At(2, 0))
	require.Equal(t, -1.0, st.G.At(1, 2))
	require.Equal(t, -1.0, st.G.At(2, 1))
	require.Equal(t, -100.0, st.G.At(2, 2))
	require.Zero(t, st.G.At(0, 0))
}

func TestVoltageSourceStamp(t *testing.T) {
	v := NewVoltageSource("V1", 1, 0, 10, 1)
	st := NewStamp(1, 1)
	v.AddStaticStamp(st)

	require.Equal(t, 1.0, st.G.At(0, 1))
	require.Equal(t, 1.0, st.G.At(1, 0))
	require.Equal(t, 10.0, st.S.At(1, 0))
}

func TestCurrentSourceStamp(t *testing.T) {
	c := NewCurrentSource("I1", 1, 2, 2e-3)
	st := NewStamp(2, 0)
	c.AddStaticStamp(st)

	require.Equal(t, -2e-3, st.S.At(0, 0))
	require.Equal(t, 2e-3, st.S.At(1, 0))
}

// Stamp linearity: two elements stamped into one stamp equal the sum of
// their isolated stamps.
func TestStampLinearity(t *testing.T) {
	r1 := NewResistor("R1", 1, 2, 100, 0)
	r2 := NewResistor("R2", 2, 0, 330, 0)
	d := NewDiode("D1", 2, 0)
	sol := solutionWith(2, 1, map[int]float64{0: 1.0, 1: 0.4})

	joint := NewStamp(2, 0)
	r1.AddStaticStamp(joint)
	r2.AddStaticStamp(joint)
	d.AddNonLinearStamp(joint, sol, 0, 0)

	s1 := NewStamp(2, 0)
	r1.AddStaticStamp(s1)
	s2 := NewStamp(2, 0)
	r2.AddStaticStamp(s2)
	s3 := NewStamp(2, 0)
	d.AddNonLinearStamp(s3, sol, 0, 0)

	s1.Add(s2)
	s1.Add(s3)
	stampEqual(t, joint, s1)
}

// A stamped divider solved straight from the Stamp: 10 V across two equal
// resistors puts 5 V on the middle node.
func TestStampSolve(t *testing.T) {
	st := NewStamp(2, 1)
	NewVoltageSource("V1", 1, 0, 10, 1).AddStaticStamp(st)
	NewResistor("R1", 1, 2, 1000, 0).AddStaticStamp(st)
	NewResistor("R2", 2, 0, 1000, 0).AddStaticStamp(st)

	x, err := st.Solve()
	require.NoError(t, err)
	require.InDelta(t, 10.0, x.At(0, 0), 1e-12)
	require.InDelta(t, 5.0, x.At(1, 0), 1e-12)
	require.InDelta(t, -5e-3, x.At(2, 0), 1e-12)
}

func TestCapacitorTrapezoidalStamp(t *testing.T) {
	c := NewCapacitor("C1", 1, 0, 1e-6)
	dt := 1e-6
	sol := solutionWith(1, 3, map[int]float64{0: 2.0})

	st := NewStamp(1, 0)
	c.AddDynamicStamp(st, sol, 1, dt)

	gEq := 2 * c.Value / dt
	require.InDelta(t, gEq, st.G.At(0, 0), 1e-12)
	require.InDelta(t, gEq*2.0, st.S.At(0, 0), 1e-12) // lastCurrent starts at 0
}

// Trapezoidal self-consistency: for any voltage series the companion
// current satisfies (i_n + i_{n-1})/2 == C * (u_n - u_{n-1}) / dt exactly.
func TestCapacitorTrapezoidalSelfConsistency(t *testing.T) {
	const (
		cval  = 4.7e-7
		dt    = 1e-6
		steps = 40
	)
	c := NewCapacitor("C1", 1, 0, cval)
	sol := matrix.New[float64](1, steps)
	for n := 0; n < steps; n++ {
		// piecewise-linear drive with a slope change halfway
		u := 1e3 * float64(n) * dt
		if n > steps/2 {
			u = 1e3*float64(steps/2)*dt - 2e3*float64(n-steps/2)*dt
		}
		sol.Set(0, n, u)
	}

	prev := 0.0
	for n := 1; n < steps; n++ {
		c.UpdateState(sol, n, dt, 1)
		du := sol.At(0, n) - sol.At(0, n-1)
		require.InDelta(t, cval*du/dt, (c.Current()+prev)/2, 1e-12, "step %d", n)
		prev = c.Current()
	}
}

func TestCapacitorBackwardEulerStamp(t *testing.T) {
	c := NewCapacitor("C1", 1, 0, 1e-6)
	c.Method = BackwardEuler
	dt := 2e-6
	sol := solutionWith(1, 2, map[int]float64{0: 3.0})

	st := NewStamp(1, 0)
	c.AddDynamicStamp(st, sol, 1, dt)

	require.InDelta(t, c.Value/dt, st.G.At(0, 0), 1e-12)
	require.InDelta(t, c.Value*3.0/dt, st.S.At(0, 0), 1e-12)
}

func TestCapacitorDCStampIsOpen(t *testing.T) {
	c := NewCapacitor("C1", 1, 2, 1e-6)
	st := NewStamp(2, 0)
	c.AddDCStamp(st, nil, 0)

	require.Equal(t, 1e-9, st.G.At(0, 0))
	require.Equal(t, 1e-9, st.G.At(1, 1))
	require.Zero(t, st.G.At(0, 1))
}

func TestInductorTrapezoidalUpdate(t *testing.T) {
	l := NewInductor("L1", 1, 0, 1e-3, 1)
	dt := 1e-6
	sol := solutionWith(1, 3, map[int]float64{0: 1.0})

	// constant 1 V across 1 mH: current grows by dt/L each step
	l.UpdateState(sol, 1, dt, 1)
	require.InDelta(t, dt/l.Value, l.Current(), 1e-15)
	l.UpdateState(sol, 2, dt, 1)
	require.InDelta(t, 2*dt/l.Value, l.Current(), 1e-15)
}

func TestInductorDCShort(t *testing.T) {
	l := NewInductor("L1", 1, 2, 1e-3, 1)
	// one transient current unknown; the DC-only row is appended after it
	st := NewStamp(2, 2)
	l.AddDCStamp(st, nil, 1)

	row := 2 + 1 + l.DCCurrentIndex - 1
	require.Equal(t, 1.0, st.G.At(0, row))
	require.Equal(t, 1.0, st.G.At(row, 0))
	require.Equal(t, -1.0, st.G.At(1, row))
	require.Equal(t, -1.0, st.G.At(row, 1))
	require.Zero(t, st.G.At(row, row))

	dcSol := matrix.New[float64](4, 1)
	dcSol.Set(row, 0, 42e-3)
	l.UpdateDCState(dcSol, 2, 1)
	require.Equal(t, 42e-3, l.Current())
}

func TestSinusoidalSourceValue(t *testing.T) {
	v := NewSinusoidalVoltageSource("VS1", 1, 0, 2, 1000, 0.5, 90, 1)
	st := NewStamp(1, 1)
	sol := matrix.New[float64](2, 2)

	// 90 degree phase at t=0 puts the source at offset + amplitude
	v.AddDynamicStamp(st, sol, 0, 1e-6)
	require.InDelta(t, 2.5, st.S.At(1, 0), 1e-12)

	st.Clear()
	// quarter period later the sine is back at the offset
	v.AddDynamicStamp(st, sol, 250, 1e-6)
	require.InDelta(t, 0.5, st.S.At(1, 0), 1e-9)
}

func TestDiodeStampAndClamp(t *testing.T) {
	d := NewDiode("D1", 1, 0)

	sol := solutionWith(1, 1, map[int]float64{0: 0.5})
	st := NewStamp(1, 0)
	d.AddNonLinearStamp(st, sol, 0, 0)

	nvt := d.Eta * d.VT
	gEq := d.ISat / nvt * math.Exp(0.5/nvt)
	iEq := d.ISat*(math.Exp(0.5/nvt)-1) - gEq*0.5
	require.InDelta(t, gEq, st.G.At(0, 0), gEq*1e-12)
	require.InDelta(t, iEq, -st.S.At(0, 0), math.Abs(iEq)*1e-12)

	// far beyond VCrit the stamp must stay finite
	sol.Set(0, 0, 100)
	st.Clear()
	d.AddNonLinearStamp(st, sol, 0, 0)
	require.False(t, math.IsInf(st.G.At(0, 0), 0))
	require.False(t, math.IsNaN(st.G.At(0, 0)))

	clamped := NewStamp(1, 0)
	sol.Set(0, 0, d.VCrit)
	d.AddNonLinearStamp(clamped, sol, 0, 0)
	require.Equal(t, clamped.G.At(0, 0), st.G.At(0, 0))
}

func TestBJTPClampGuardsOverflow(t *testing.T) {
	q := NewBJTP("QP1", 1, 2, 3)
	// strongly negative junction voltages are where exp(-v/VT) explodes
	sol := solutionWith(3, 1, map[int]float64{0: 50, 1: -50, 2: 50})
	st := NewStamp(3, 0)
	q.AddNonLinearStamp(st, sol, 0, 0)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			require.False(t, math.IsInf(st.G.At(i, j), 0), "G(%d,%d)", i, j)
			require.False(t, math.IsNaN(st.G.At(i, j)), "G(%d,%d)", i, j)
		}
	}
}

// The NPN base row must carry the negated sum of the emitter and collector
// rows: KCL across the whole device.
func TestBJTNRowSumsToZero(t *testing.T) {
	q := NewBJTN("QN1", 1, 2, 3)
	sol := solutionWith(3, 1, map[int]float64{0: 2.0, 1: 0.65, 2: 0.0})
	st := NewStamp(3, 0)
	q.AddNonLinearStamp(st, sol, 0, 0)

	for j := 0; j < 3; j++ {
		sum := st.G.At(0, j) + st.G.At(1, j) + st.G.At(2, j)
		require.InDelta(t, 0.0, sum, 1e-6, "column %d", j)
	}
	require.InDelta(t, 0.0, st.S.At(0, 0)+st.S.At(1, 0)+st.S.At(2, 0), 1e-9)
}

func TestNLCapacitorRestingStateStampsPlainCapacitor(t *testing.T) {
	// with u == uLast == 0 and no stored current the linearization
	// collapses to G_eq = 2*C(0)/dt
	c := NewNLCapacitor("CN1", 1, 0, 1e-6, 0.5e-6, 0, 0.3)
	dt := 1e-6
	sol := matrix.New[float64](1, 1)
	st := NewStamp(1, 0)
	c.AddNonLinearStamp(st, sol, 0, dt)

	c0 := c.capacitance(0)
	require.InDelta(t, 2*c0/dt, st.G.At(0, 0), 1e-6)
	require.InDelta(t, 0.0, st.S.At(0, 0), 1e-12)
}

func TestNLCapacitorDCStateIngestion(t *testing.T) {
	c := NewNLCapacitor("CN1", 1, 0, 1e-6, 0.5e-6, 0, 0.3)
	dcSol := solutionWith(1, 1, map[int]float64{0: 0.8})
	c.UpdateDCState(dcSol, 1, 0)

	require.Equal(t, 0.8, c.uLast)
	require.Zero(t, c.iLast)
	require.InDelta(t, c.capacitance(0.8), c.cLast, 1e-18)
}

// The COBRA drain current partials must agree with finite differences of
// the same equation.
func TestCobraDrainCurrentPartials(t *testing.T) {
	src := NewNLCurrentSource("IN1", 1, 0, 2, 0, 3, 0)
	const h = 1e-6
	for _, pt := range [][2]float64{{0.1, 1.0}, {-0.5, 2.0}, {0.3, 0.5}} {
		r1, r2 := pt[0], pt[1]
		drain := src.DrainCurrent(r1, r2)

		d1 := (src.DrainCurrent(r1+h, r2).At(0) - src.DrainCurrent(r1-h, r2).At(0)) / (2 * h)
		d2 := (src.DrainCurrent(r1, r2+h).At(0) - src.DrainCurrent(r1, r2-h).At(0)) / (2 * h)
		require.InDelta(t, d1, drain.At(1), math.Abs(d1)*1e-4+1e-8, "dI/dr1 at %v", pt)
		require.InDelta(t, d2, drain.At(2), math.Abs(d2)*1e-4+1e-8, "dI/dr2 at %v", pt)
	}
}

func TestNMOSStateAdvance(t *testing.T) {
	m := NewNLNMOS("QMN1", 1, 2, 3)
	sol := solutionWith(3, 2, map[int]float64{0: 1.0, 1: 0.5, 2: 0.0})

	m.UpdateState(sol, 1, 1e-6, 3)
	require.InDelta(t, 0.5, m.uGSLast, 1e-15)
	require.InDelta(t, -0.5, m.uGDLast, 1e-15)
	require.InDelta(t, m.gateDrainCap(-0.5), m.cGDLast, 1e-15)
	require.InDelta(t, m.gateSourceCap(0.5), m.cGSLast, 1e-15)
}
