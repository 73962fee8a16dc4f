package device

import (
	"math"

	"github.com/edp1096/wave-spice/internal/consts"
)

// NLNMOS is a non-linear FET with tanh-shaped gate capacitances and a tanh
// channel current. Node order: drain, gate, source. The gate capacitances
// follow the same trapezoidal linearization as the non-linear capacitor.
type NLNMOS struct {
	BaseElement

	CGSp float64
	CGSo float64
	PS10 float64
	PS11 float64
	CGDp float64
	CGDo float64
	PD10 float64
	PD11 float64

	BetaDS  float64
	AlphaDS float64

	uGDLast float64
	uGSLast float64
	iGDLast float64
	iGSLast float64
	cGDLast float64
	cGSLast float64
}

func NewNLNMOS(name string, d, g, s int) *NLNMOS {
	m := &NLNMOS{
		BaseElement: BaseElement{Name: name, N: []int{d, g, s}},
		CGSp:        consts.NMOSCGSp,
		CGSo:        consts.NMOSCGSo,
		PS10:        consts.NMOSPS10,
		PS11:        consts.NMOSPS11,
		CGDp:        consts.NMOSCGDp,
		CGDo:        consts.NMOSCGDo,
		PD10:        consts.NMOSPD10,
		PD11:        consts.NMOSPD11,
		BetaDS:      consts.NMOSBetaDS,
		AlphaDS:     consts.NMOSAlphaDS,
	}
	m.cGDLast = m.gateDrainCap(0)
	m.cGSLast = m.gateSourceCap(0)
	return m
}

func (m *NLNMOS) gateDrainCap(uGD float64) float64 {
	return m.CGDp + m.CGDo*(1+math.Tanh(m.PD10+m.PD11*uGD))
}

func (m *NLNMOS) gateSourceCap(uGS float64) float64 {
	return m.CGSp + m.CGSo*(1+math.Tanh(m.PS10+m.PS11*uGS))
}

func (m *NLNMOS) controlVoltages(sol *Mat, col int) (uGS, uGD float64) {
	d, g, s := m.N[0], m.N[1], m.N[2]
	if g > 0 {
		uGS = sol.At(g-1, col)
		uGD = sol.At(g-1, col)
	}
	if s > 0 {
		uGS -= sol.At(s-1, col)
	}
	if d > 0 {
		uGD -= sol.At(d-1, col)
	}
	return uGS, uGD
}

func (m *NLNMOS) AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64) {
	d, g, s := m.N[0], m.N[1], m.N[2]
	uGS, uGD := m.controlVoltages(sol, n)

	cGD := m.gateDrainCap(uGD)
	cGS := m.gateSourceCap(uGS)

	coshGD := math.Cosh(m.PD10 + m.PD11*uGD)
	coshGS := math.Cosh(m.PS10 + m.PS11*uGS)
	dcGD := m.CGDo * m.PD11 / (coshGD * coshGD)
	dcGS := m.CGSo * m.PS11 / (coshGS * coshGS)

	coshDS := math.Cosh(m.AlphaDS * (uGS - uGD))
	iDS := m.BetaDS * math.Tanh(m.AlphaDS*(uGS-uGD))
	diDSd := -m.BetaDS * m.AlphaDS / (coshDS * coshDS)
	diDSs := m.BetaDS * m.AlphaDS / (coshDS * coshDS)

	iGD := cGD * (2*(uGD-m.uGDLast)/dt - m.iGDLast/m.cGDLast)
	iGS := cGS * (2*(uGS-m.uGSLast)/dt - m.iGSLast/m.cGSLast)

	iD := -iGD + iDS
	iS := -iGS - iDS
	iG := iGS + iGD

	diGD := dcGD*(2*(uGD-m.uGDLast)/dt-m.iGDLast/m.cGDLast) + 2*cGD/dt
	diGS := dcGS*(2*(uGS-m.uGSLast)/dt-m.iGSLast/m.cGSLast) + 2*cGS/dt

	gDD := -diGD + diDSd
	gSD := -diDSd
	gGD := diGD

	gDS := diDSd
	gSS := -diGS - diDSs
	gGS := diGS

	iDEq := iD - gDD*uGD - gDS*uGS
	iSEq := iS - gSD*uGD - gSS*uGS
	iGEq := iG - gGD*uGD - gGS*uGS

	if d > 0 {
		st.G.Add(d-1, d-1, -gDD)
		st.S.Add(d-1, 0, -iDEq)
		if s > 0 {
			st.G.Add(d-1, s-1, -gDS)
		}
		if g > 0 {
			st.G.Add(d-1, g-1, gDD+gDS)
		}
	}

	if s > 0 {
		st.G.Add(s-1, s-1, -gSS)
		st.S.Add(s-1, 0, -iSEq)
		if d > 0 {
			st.G.Add(s-1, d-1, -gSD)
		}
		if g > 0 {
			st.G.Add(s-1, g-1, gSD+gSS)
		}
	}

	if g > 0 {
		st.G.Add(g-1, g-1, gGD+gGS)
		st.S.Add(g-1, 0, -iGEq)
		if d > 0 {
			st.G.Add(g-1, d-1, -gGD)
		}
		if s > 0 {
			st.G.Add(g-1, s-1, -gGS)
		}
	}
}

func (m *NLNMOS) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	uGS, uGD := m.controlVoltages(sol, n)

	cGD := m.gateDrainCap(uGD)
	cGS := m.gateSourceCap(uGS)

	m.iGDLast = cGD * (2*(uGD-m.uGDLast)/dt - m.iGDLast/m.cGDLast)
	m.iGSLast = cGS * (2*(uGS-m.uGSLast)/dt - m.iGSLast/m.cGSLast)

	m.cGDLast = cGD
	m.cGSLast = cGS
	m.uGDLast = uGD
	m.uGSLast = uGS
}
