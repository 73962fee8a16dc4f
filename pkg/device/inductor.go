package device

// Inductor is an ideal inductor discretized by its companion model. During
// DC analysis it short-circuits through a dedicated DC-only current unknown
// whose solved value seeds the transient companion current.
type Inductor struct {
	BaseElement
	Value          float64
	Method         Integration
	DCCurrentIndex int
	lastCurrent    float64
}

func NewInductor(name string, n1, n2 int, value float64, dcCurrentIndex int) *Inductor {
	return &Inductor{
		BaseElement:    BaseElement{Name: name, N: []int{n1, n2}},
		Value:          value,
		Method:         Trapezoidal,
		DCCurrentIndex: dcCurrentIndex,
	}
}

func (l *Inductor) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	n1, n2 := l.N[0], l.N[1]
	u0 := branchVoltage(sol, n1, n2, n-1)

	var gEq, iEq float64
	if l.Method == Trapezoidal {
		gEq = dt / (2 * l.Value)
		iEq = l.lastCurrent + gEq*u0
	} else {
		gEq = dt / l.Value
		iEq = l.lastCurrent
	}

	stampConductance(st, n1, n2, gEq)
	// companion current opposes the capacitor orientation
	stampCurrentInto(st, n1, n2, -iEq)
}

func (l *Inductor) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	n1, n2 := l.N[0], l.N[1]
	u0 := branchVoltage(sol, n1, n2, n-1)
	u1 := branchVoltage(sol, n1, n2, n)

	if l.Method == Trapezoidal {
		gEq := dt / (2 * l.Value)
		l.lastCurrent = gEq*u1 + (l.lastCurrent + gEq*u0)
	} else {
		l.lastCurrent += dt / l.Value * u1
	}
}

// At DC an inductor is a short circuit expressed through its own current
// unknown, placed after the transient group-II block.
func (l *Inductor) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	row := st.SizeGA + numCurrents + l.DCCurrentIndex - 1
	stampBranchLink(st, l.N[0], l.N[1], row)
}

func (l *Inductor) UpdateDCState(sol *Mat, sizeGA, numCurrents int) {
	l.lastCurrent = sol.At(sizeGA+numCurrents+l.DCCurrentIndex-1, 0)
}

// Current returns the companion current carried from the last accepted step.
func (l *Inductor) Current() float64 { return l.lastCurrent }
