// Package circuit owns the circuit elements and the cached MNA stamps. The
// three transient stamps form a hierarchy: the static layer is rebuilt only
// on structural change, the dynamic layer once per time step, the
// non-linear layer once per Newton-Raphson iteration.
package circuit

import (
	"github.com/edp1096/wave-spice/pkg/device"
)

// Freshness records how far up the stamp hierarchy the caches are current.
// Invalidation is hierarchical: dropping a level also drops everything
// above it, which a single ordered value makes total by construction.
type Freshness int

const (
	Stale Freshness = iota
	StaticFresh
	DynamicFresh
	NonLinearFresh
)

// Circuit holds the elements partitioned into the three stamping strata in
// insertion order, the preallocated stamps, and a node-to-element map kept
// for diagnostics (back-references only; the strata own the elements).
type Circuit struct {
	NumNodes      int
	NumCurrents   int
	NumDCCurrents int

	Static    []device.Component
	Dynamic   []device.Component
	NonLinear []device.Component

	nodeElements map[int][]device.Component

	staticStamp    *device.Stamp
	dynamicStamp   *device.Stamp
	nonLinearStamp *device.Stamp
	dcStamp        *device.Stamp

	fresh Freshness
}

func New(numNodes, numCurrents, numDCCurrents int) *Circuit {
	return &Circuit{
		NumNodes:       numNodes,
		NumCurrents:    numCurrents,
		NumDCCurrents:  numDCCurrents,
		nodeElements:   make(map[int][]device.Component),
		staticStamp:    device.NewStamp(numNodes, numCurrents),
		dynamicStamp:   device.NewStamp(numNodes, numCurrents),
		nonLinearStamp: device.NewStamp(numNodes, numCurrents),
		dcStamp:        device.NewStamp(numNodes, numCurrents+numDCCurrents),
	}
}

// AddElement files the element into its stratum: non-linear beats dynamic
// beats static. Within a stratum, insertion order is stamping order.
func (c *Circuit) AddElement(el device.Component) {
	switch el.(type) {
	case device.NonLinearStamper:
		c.NonLinear = append(c.NonLinear, el)
	case device.DynamicStamper:
		c.Dynamic = append(c.Dynamic, el)
	default:
		c.Static = append(c.Static, el)
	}

	for _, node := range el.Nodes() {
		c.nodeElements[node] = append(c.nodeElements[node], el)
	}
	c.fresh = Stale
}

// ElementsAtNode returns the elements touching a node, for diagnostics.
func (c *Circuit) ElementsAtNode(node int) []device.Component {
	return c.nodeElements[node]
}

// MatrixSize is the transient system size (group I + group II).
func (c *Circuit) MatrixSize() int { return c.NumNodes + c.NumCurrents }

// DCMatrixSize additionally includes the DC-only current unknowns.
func (c *Circuit) DCMatrixSize() int { return c.NumNodes + c.NumCurrents + c.NumDCCurrents }

func (c *Circuit) forEach(fn func(device.Component)) {
	for _, el := range c.Static {
		fn(el)
	}
	for _, el := range c.Dynamic {
		fn(el)
	}
	for _, el := range c.NonLinear {
		fn(el)
	}
}

// GenerateStaticStamp rebuilds the static layer: every stratum may
// contribute a static skeleton.
func (c *Circuit) GenerateStaticStamp() *device.Stamp {
	c.staticStamp.Clear()
	c.forEach(func(el device.Component) {
		if s, ok := el.(device.StaticStamper); ok {
			s.AddStaticStamp(c.staticStamp)
		}
	})
	if c.fresh < StaticFresh {
		c.fresh = StaticFresh
	}
	return c.staticStamp
}

// GenerateDynamicStamp copies the static layer and adds the contributions
// that depend on dt and previous solution columns.
func (c *Circuit) GenerateDynamicStamp(sol *device.Mat, n int, dt float64) *device.Stamp {
	if c.fresh < StaticFresh {
		c.GenerateStaticStamp()
	}
	c.dynamicStamp.CopyFrom(c.staticStamp)

	addDynamic := func(el device.Component) {
		if d, ok := el.(device.DynamicStamper); ok {
			d.AddDynamicStamp(c.dynamicStamp, sol, n, dt)
		}
	}
	for _, el := range c.Dynamic {
		addDynamic(el)
	}
	for _, el := range c.NonLinear {
		addDynamic(el)
	}

	if c.fresh < DynamicFresh {
		c.fresh = DynamicFresh
	}
	return c.dynamicStamp
}

// GenerateNonLinearStamp copies the dynamic layer and adds the
// contributions evaluated at the current Newton-Raphson iterate.
func (c *Circuit) GenerateNonLinearStamp(sol *device.Mat, n int, dt float64) *device.Stamp {
	if c.fresh < DynamicFresh {
		c.GenerateDynamicStamp(sol, n, dt)
	}
	c.nonLinearStamp.CopyFrom(c.dynamicStamp)

	for _, el := range c.NonLinear {
		if nl, ok := el.(device.NonLinearStamper); ok {
			nl.AddNonLinearStamp(c.nonLinearStamp, sol, n, dt)
		}
	}

	c.fresh = NonLinearFresh
	return c.nonLinearStamp
}

// GenerateDCStamp rebuilds the DC stamp from scratch; it is never cached.
func (c *Circuit) GenerateDCStamp(sol *device.Mat, numCurrents int) *device.Stamp {
	c.dcStamp.Clear()
	c.forEach(func(el device.Component) {
		if dc, ok := el.(device.DCStamper); ok {
			dc.AddDCStamp(c.dcStamp, sol, numCurrents)
		}
	})
	return c.dcStamp
}

// Freshness exposes the cache state, mainly for tests.
func (c *Circuit) Freshness() Freshness { return c.fresh }

// InvalidateNonLinear drops only the top cache level; called between
// Newton-Raphson iterations so the dynamic layer is reused.
func (c *Circuit) InvalidateNonLinear() {
	if c.fresh > DynamicFresh {
		c.fresh = DynamicFresh
	}
}

// InvalidateStatic forces a full rebuild; used when the stamp structure
// changes (the pole-residue block switching discretization order).
func (c *Circuit) InvalidateStatic() {
	c.fresh = Stale
}

// UpdateTimeStep ends a time step: the dynamic and non-linear layers go
// stale and every stateful element advances its stored state.
func (c *Circuit) UpdateTimeStep(sol *device.Mat, n int, dt float64) {
	if c.fresh > StaticFresh {
		c.fresh = StaticFresh
	}
	update := func(el device.Component) {
		if s, ok := el.(device.Stateful); ok {
			s.UpdateState(sol, n, dt, c.staticStamp.SizeGA)
		}
	}
	for _, el := range c.Dynamic {
		update(el)
	}
	for _, el := range c.NonLinear {
		update(el)
	}
}

// UpdateDCState propagates the DC operating point into element state.
func (c *Circuit) UpdateDCState(sol *device.Mat) {
	c.forEach(func(el device.Component) {
		if s, ok := el.(device.DCStateful); ok {
			s.UpdateDCState(sol, c.dcStamp.SizeGA, c.NumCurrents)
		}
	})
}

// SetTimestep pushes the timestep into every element that precomputes
// timestep-dependent constants.
func (c *Circuit) SetTimestep(dt float64) {
	c.forEach(func(el device.Component) {
		if td, ok := el.(device.TimeDependent); ok {
			td.SetTimestep(dt)
		}
	})
}
