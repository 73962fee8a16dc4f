package device

// Capacitor is an ideal capacitor discretized by its companion model.
// The trapezoidal form carries the companion current between steps; the
// backward-Euler form is stateless.
type Capacitor struct {
	BaseElement
	Value       float64
	Method      Integration
	lastCurrent float64
}

func NewCapacitor(name string, n1, n2 int, value float64) *Capacitor {
	return &Capacitor{
		BaseElement: BaseElement{Name: name, N: []int{n1, n2}},
		Value:       value,
		Method:      Trapezoidal,
	}
}

func (c *Capacitor) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	n1, n2 := c.N[0], c.N[1]
	u0 := branchVoltage(sol, n1, n2, n-1)

	gEq := companionConductance(c.Method, c.Value, dt)
	var iEq float64
	if c.Method == Trapezoidal {
		iEq = c.lastCurrent + gEq*u0
	} else {
		iEq = c.Value * u0 / dt
	}

	stampConductance(st, n1, n2, gEq)
	stampCurrentInto(st, n1, n2, iEq)
}

func (c *Capacitor) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	if c.Method != Trapezoidal {
		return
	}
	n1, n2 := c.N[0], c.N[1]
	u0 := branchVoltage(sol, n1, n2, n-1)
	u1 := branchVoltage(sol, n1, n2, n)

	gEq := companionConductance(Trapezoidal, c.Value, dt)
	c.lastCurrent = gEq*u1 - (c.lastCurrent + gEq*u0)
}

// At DC a capacitor is an open circuit; a tiny self-conductance keeps the
// node from floating.
func (c *Capacitor) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	if c.N[0] > 0 {
		st.G.Add(c.N[0]-1, c.N[0]-1, 1e-9)
	}
	if c.N[1] > 0 {
		st.G.Add(c.N[1]-1, c.N[1]-1, 1e-9)
	}
}

// Current returns the companion current carried from the last accepted step.
func (c *Capacitor) Current() float64 { return c.lastCurrent }
