package device

import (
	"math"

	"github.com/edp1096/wave-spice/internal/consts"
)

// bjtParams are the Ebers-Moll constants shared by both polarities.
type bjtParams struct {
	AlphaF float64
	AlphaR float64
	IES    float64
	VTE    float64
	ICS    float64
	VTC    float64

	VBECrit float64
	VBCCrit float64
}

func defaultBJTParams() bjtParams {
	p := bjtParams{
		AlphaF: consts.BJTAlphaF,
		AlphaR: consts.BJTAlphaR,
		IES:    consts.BJTIES,
		VTE:    consts.BJTVTE,
		ICS:    consts.BJTICS,
		VTC:    consts.BJTVTC,
	}
	p.VBECrit = p.VTE * math.Log(p.VTE/(p.IES*math.Sqrt2))
	p.VBCCrit = p.VTC * math.Log(p.VTC/(p.ICS*math.Sqrt2))
	return p
}

// BJTN is an Ebers-Moll NPN transistor. Node order: collector, base,
// emitter.
type BJTN struct {
	BaseElement
	bjtParams
}

func NewBJTN(name string, c, b, e int) *BJTN {
	return &BJTN{
		BaseElement: BaseElement{Name: name, N: []int{c, b, e}},
		bjtParams:   defaultBJTParams(),
	}
}

func (q *BJTN) AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64) {
	c, b, e := q.N[0], q.N[1], q.N[2]

	vbe := 0.0
	vbc := 0.0
	if b > 0 {
		vbe = sol.At(b-1, n)
		vbc = sol.At(b-1, n)
	}
	if e > 0 {
		vbe -= sol.At(e-1, n)
	}
	if c > 0 {
		vbc -= sol.At(c-1, n)
	}

	vbe = math.Min(q.VBECrit, vbe)
	vbc = math.Min(q.VBCCrit, vbc)

	expE := math.Exp(vbe / q.VTE)
	expC := math.Exp(vbc / q.VTC)

	iE := -q.IES*(expE-1) + q.AlphaR*q.ICS*(expC-1)
	iC := q.AlphaF*q.IES*(expE-1) - q.ICS*(expC-1)

	gEE := q.IES / q.VTE * expE
	gEC := q.AlphaR * q.ICS / q.VTC * expC
	gCE := q.AlphaF * q.IES / q.VTE * expE
	gCC := q.ICS / q.VTC * expC

	iEEq := iE + gEE*vbe - gEC*vbc
	iCEq := iC - gCE*vbe + gCC*vbc

	if e > 0 {
		st.G.Add(e-1, e-1, gEE)
		st.S.Add(e-1, 0, -iEEq)
		if c > 0 {
			st.G.Add(e-1, c-1, -gEC)
		}
		if b > 0 {
			st.G.Add(e-1, b-1, gEC-gEE)
		}
	}

	if c > 0 {
		st.G.Add(c-1, c-1, gCC)
		st.S.Add(c-1, 0, -iCEq)
		if e > 0 {
			st.G.Add(c-1, e-1, -gCE)
		}
		if b > 0 {
			st.G.Add(c-1, b-1, gCE-gCC)
		}
	}

	if b > 0 {
		st.G.Add(b-1, b-1, gCC+gEE-gCE-gEC)
		st.S.Add(b-1, 0, iEEq+iCEq)
		if e > 0 {
			st.G.Add(b-1, e-1, gCE-gEE)
		}
		if c > 0 {
			st.G.Add(b-1, c-1, gEC-gCC)
		}
	}
}

func (q *BJTN) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	q.AddNonLinearStamp(st, sol, 0, 0)
}

// BJTP is an Ebers-Moll PNP transistor. Node order: collector, base,
// emitter. The junction voltages enter as exp(-v/V_T), so the clamp bounds
// them from below at -VCrit.
type BJTP struct {
	BaseElement
	bjtParams
}

func NewBJTP(name string, c, b, e int) *BJTP {
	return &BJTP{
		BaseElement: BaseElement{Name: name, N: []int{c, b, e}},
		bjtParams:   defaultBJTParams(),
	}
}

func (q *BJTP) AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64) {
	c, b, e := q.N[0], q.N[1], q.N[2]

	vbe := 0.0
	vbc := 0.0
	if b > 0 {
		vbe = sol.At(b-1, n)
		vbc = sol.At(b-1, n)
	}
	if e > 0 {
		vbe -= sol.At(e-1, n)
	}
	if c > 0 {
		vbc -= sol.At(c-1, n)
	}

	vbe = math.Max(-q.VBECrit, vbe)
	vbc = math.Max(-q.VBCCrit, vbc)

	iF := q.ICS * (math.Exp(-vbc/q.VTC) - 1)
	iR := q.IES * (math.Exp(-vbe/q.VTE) - 1)
	diF := -q.ICS / q.VTC * math.Exp(-vbc/q.VTC)
	diR := -q.IES / q.VTE * math.Exp(-vbe/q.VTE)

	iE := iR - q.AlphaF*iF
	iB := (q.AlphaF-1)*iF + (q.AlphaR-1)*iR
	iC := iF - q.AlphaR*iR

	gEE := diF
	gEC := -q.AlphaR * diR
	gCE := -q.AlphaF * diF
	gCC := diR
	gBE := (q.AlphaR - 1) * diR
	gBC := (q.AlphaF - 1) * diF

	iEEq := iE - gEE*vbe - gEC*vbc
	iCEq := iC - gCE*vbe - gCC*vbc
	iBEq := iB - gBE*vbe - gBC*vbc

	if e > 0 {
		st.G.Add(e-1, e-1, -gEE)
		st.S.Add(e-1, 0, -iEEq)
		if c > 0 {
			st.G.Add(e-1, c-1, -gEC)
		}
		if b > 0 {
			st.G.Add(e-1, b-1, gEC+gEE)
		}
	}

	if c > 0 {
		st.G.Add(c-1, c-1, -gCC)
		st.S.Add(c-1, 0, -iCEq)
		if e > 0 {
			st.G.Add(c-1, e-1, -gCE)
		}
		if b > 0 {
			st.G.Add(c-1, b-1, gCE+gCC)
		}
	}

	if b > 0 {
		st.G.Add(b-1, b-1, gBE+gBC)
		st.S.Add(b-1, 0, -iBEq)
		if e > 0 {
			st.G.Add(b-1, e-1, -gBE)
		}
		if c > 0 {
			st.G.Add(b-1, c-1, -gBC)
		}
	}
}

func (q *BJTP) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	q.AddNonLinearStamp(st, sol, 0, 0)
}
