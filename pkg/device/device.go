package device

import (
	"github.com/edp1096/wave-spice/pkg/matrix"
)

// Mat is the real-valued dense matrix the transient engine stamps into.
type Mat = matrix.Matrix[float64]

// Stamp is a preallocated MNA (G, s) pair. The G matrix is partitioned so
// the first SizeGA rows/columns belong to node voltages (group I) and the
// remaining SizeGD to explicit branch currents (group II, plus any DC-only
// currents). Sized once per netlist and reused across all rebuilds.
type Stamp struct {
	SizeGA int
	SizeGD int

	G *Mat
	S *Mat
}

func NewStamp(numNodes, numCurrents int) *Stamp {
	size := numNodes + numCurrents
	return &Stamp{
		SizeGA: numNodes,
		SizeGD: numCurrents,
		G:      matrix.New[float64](size, size),
		S:      matrix.New[float64](size, 1),
	}
}

func (st *Stamp) Clear() {
	st.G.Fill(0)
	st.S.Fill(0)
}

// Add combines another stamp into this one. Element contributions are
// strictly additive, so summing stamps equals stamping jointly.
func (st *Stamp) Add(rhs *Stamp) {
	st.G.AddTo(rhs.G)
	st.S.AddTo(rhs.S)
}

func (st *Stamp) CopyFrom(rhs *Stamp) {
	st.G.CopyFrom(rhs.G)
	st.S.CopyFrom(rhs.S)
}

// Solve factors G and returns x = G \ s. Convenience form; the transient
// driver factors into its own preallocated workspace instead.
func (st *Stamp) Solve() (*Mat, error) {
	return st.G.Solve(st.S)
}

// CurrentRow maps a 1-based branch-current index to its matrix row.
func (st *Stamp) CurrentRow(currentIndex int) int {
	return st.SizeGA + currentIndex - 1
}

// Component is the minimal contract every circuit element satisfies. The
// stamping behaviors are optional interfaces below; the registry dispatches
// with type assertions, mirroring how devices opt into behaviors.
type Component interface {
	Designator() string
	Nodes() []int
}

// StaticStamper contributes values independent of time and solution.
type StaticStamper interface {
	AddStaticStamp(st *Stamp)
}

// DynamicStamper contributes values that depend on the timestep and on
// previous solution columns (companion models, time-varying sources,
// S-parameter convolutions).
type DynamicStamper interface {
	AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64)
}

// NonLinearStamper contributes values evaluated at the current
// Newton-Raphson iterate (column n of the solution matrix).
type NonLinearStamper interface {
	AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64)
}

// Stateful elements advance per-element state once the outer time step has
// converged.
type Stateful interface {
	UpdateState(sol *Mat, n int, dt float64, sizeGA int)
}

// DCStamper contributes the DC-analysis variant of the element: capacitors
// open, inductors short through a dedicated DC current unknown, non-linear
// elements evaluated at column 0.
type DCStamper interface {
	AddDCStamp(st *Stamp, sol *Mat, numCurrents int)
}

// DCStateful elements ingest the DC operating point as their initial state.
type DCStateful interface {
	UpdateDCState(sol *Mat, sizeGA, numCurrents int)
}

// TimeDependent elements precompute timestep-dependent constants.
type TimeDependent interface {
	SetTimestep(dt float64)
}

// BaseElement carries what every element shares: the netlist designator and
// the node indices (0 denotes the reference node).
type BaseElement struct {
	Name string
	N    []int
}

func (b *BaseElement) Designator() string { return b.Name }
func (b *BaseElement) Nodes() []int       { return b.N }

// branchVoltage reads v(n1) - v(n2) from solution column col.
func branchVoltage(sol *Mat, n1, n2, col int) float64 {
	v := 0.0
	if n1 > 0 {
		v = sol.At(n1-1, col)
	}
	if n2 > 0 {
		v -= sol.At(n2-1, col)
	}
	return v
}

// stampConductance adds conductance g between nodes n1 and n2.
func stampConductance(st *Stamp, n1, n2 int, g float64) {
	if n1 > 0 {
		st.G.Add(n1-1, n1-1, g)
	}
	if n2 > 0 {
		st.G.Add(n2-1, n2-1, g)
	}
	if n1 > 0 && n2 > 0 {
		st.G.Add(n1-1, n2-1, -g)
		st.G.Add(n2-1, n1-1, -g)
	}
}

// stampCurrentInto adds a Norton current i flowing into n1 and out of n2.
func stampCurrentInto(st *Stamp, n1, n2 int, i float64) {
	if n1 > 0 {
		st.S.Add(n1-1, 0, i)
	}
	if n2 > 0 {
		st.S.Add(n2-1, 0, -i)
	}
}

// stampBranchLink wires the +1/-1 coupling between a branch-current row and
// its terminal nodes (KVL row and KCL columns of group-II elements).
func stampBranchLink(st *Stamp, n1, n2, currentRow int) {
	if n1 > 0 {
		st.G.Add(n1-1, currentRow, 1)
		st.G.Add(currentRow, n1-1, 1)
	}
	if n2 > 0 {
		st.G.Add(n2-1, currentRow, -1)
		st.G.Add(currentRow, n2-1, -1)
	}
}
