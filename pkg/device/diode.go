package device

import (
	"math"

	"github.com/edp1096/wave-spice/internal/consts"
)

// Diode is a single-junction Ebers-Moll diode, stamped as the Norton
// linearization around the current Newton-Raphson iterate.
type Diode struct {
	BaseElement
	ISat float64
	VT   float64
	Eta  float64

	// VCrit bounds the junction voltage so exp(v/(eta*VT)) stays finite.
	VCrit float64
}

func NewDiode(name string, n1, n2 int) *Diode {
	d := &Diode{
		BaseElement: BaseElement{Name: name, N: []int{n1, n2}},
		ISat:        consts.DiodeISat,
		VT:          consts.DiodeVT,
		Eta:         consts.DiodeEta,
	}
	d.VCrit = d.Eta * d.VT * math.Log(d.Eta*d.VT/(d.ISat*math.Sqrt2))
	return d
}

func (d *Diode) AddNonLinearStamp(st *Stamp, sol *Mat, n int, dt float64) {
	n1, n2 := d.N[0], d.N[1]

	v := branchVoltage(sol, n1, n2, n)
	v = math.Min(d.VCrit, v)

	nvt := d.Eta * d.VT
	gEq := d.ISat / nvt * math.Exp(v/nvt)
	iEq := d.ISat*(math.Exp(v/nvt)-1) - gEq*v

	stampConductance(st, n1, n2, gEq)
	stampCurrentInto(st, n1, n2, -iEq)
}

func (d *Diode) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	d.AddNonLinearStamp(st, sol, 0, 0)
}
