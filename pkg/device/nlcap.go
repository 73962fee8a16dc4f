package device

import "math"

// NLCapacitor is a voltage-dependent capacitor
// C(u) = Cp + Co*(1 + tanh(P10 + P11*u)), discretized trapezoidally and
// linearized around the current Newton-Raphson iterate.
type NLCapacitor struct {
	BaseElement
	Cp  float64
	Co  float64
	P10 float64
	P11 float64

	uLast float64
	iLast float64
	cLast float64
}

func NewNLCapacitor(name string, n1, n2 int, cp, co, p10, p11 float64) *NLCapacitor {
	c := &NLCapacitor{
		BaseElement: BaseElement{Name: name, N: []int{n1, n2}},
		Cp:          cp,
		Co:          co,
		P10:         p10,
		P11:         p11,
	}
	c.cLast = c.capacitance(0)
	return c
}

func (c *NLCapacitor) capacitance(u float64) float64 {
	return c.Cp + c.Co*(1+math.Tanh(c.P10+c.P11*u))
}

func (c *NLCapacitor) AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64) {
	n1, n2 := c.N[0], c.N[1]
	u := branchVoltage(sol, n1, n2, n)

	cap := c.capacitance(u)
	cosh := math.Cosh(c.P10 + c.P11*u)
	dCap := c.Co * c.P11 / (cosh * cosh)

	i := cap * (2*(u-c.uLast)/dt - c.iLast/c.cLast)
	di := dCap*(2*(u-c.uLast)/dt-c.iLast/c.cLast) + 2*cap/dt

	gEq := di
	iEq := i - gEq*u

	stampConductance(st, n1, n2, gEq)
	stampCurrentInto(st, n1, n2, -iEq)
}

func (c *NLCapacitor) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	u := branchVoltage(sol, c.N[0], c.N[1], n)
	cap := c.capacitance(u)

	c.iLast = cap * (2*(u-c.uLast)/dt - c.iLast/c.cLast)
	c.cLast = cap
	c.uLast = u
}

// The DC solution fixes the initial bias voltage and capacitance; the
// companion current restarts from zero.
func (c *NLCapacitor) UpdateDCState(sol *Mat, sizeGA, numCurrents int) {
	u := branchVoltage(sol, c.N[0], c.N[1], 0)
	c.iLast = 0
	c.cLast = c.capacitance(u)
	c.uLast = u
}

func (c *NLCapacitor) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	if c.N[0] > 0 {
		st.G.Add(c.N[0]-1, c.N[0]-1, 1e-9)
	}
	if c.N[1] > 0 {
		st.G.Add(c.N[1]-1, c.N[1]-1, 1e-9)
	}
}
