package device

import (
	"github.com/edp1096/wave-spice/internal/consts"
	"github.com/edp1096/wave-spice/pkg/ad"
)

// NLCurrentSource is the channel current source of the COBRA FET model.
// The device equation is evaluated once through forward-mode auto
// differentiation; the value and both partials feed the Norton stamp
// directly, so no hand-derived Jacobian appears here.
type NLCurrentSource struct {
	BaseElement

	// controlling voltage taps: r1 = v(R1Pos)-v(R1Neg), r2 = v(R2Pos)-v(R2Neg)
	R1Pos int
	R1Neg int
	R2Pos int
	R2Neg int
}

func NewNLCurrentSource(name string, n1, n2, r1Pos, r1Neg, r2Pos, r2Neg int) *NLCurrentSource {
	return &NLCurrentSource{
		BaseElement: BaseElement{Name: name, N: []int{n1, n2}},
		R1Pos:       r1Pos,
		R1Neg:       r1Neg,
		R2Pos:       r2Pos,
		R2Neg:       r2Neg,
	}
}

// DrainCurrent evaluates the COBRA channel equation at the controlling
// voltages (r1, r2), returning the current and its two partials.
func (n *NLCurrentSource) DrainCurrent(r1, r2 float64) ad.Var[float64] {
	const (
		alpha  = consts.CobraAlpha
		beta   = consts.CobraBeta0
		gamma  = consts.CobraGamma
		delta  = consts.CobraDelta
		xi     = consts.CobraXi
		lambda = consts.CobraLambda
		mu     = consts.CobraMu
		zeta   = consts.CobraZeta
		vto    = consts.CobraVto
	)

	vGS := ad.New(r1, 1, 0)
	vDS := ad.New(r2, 0, 1)

	vGST := vGS.Shift(-(1 + beta*beta) * vto).Add(vDS.Scale(gamma))
	vEff := vGST.Add(ad.Sqrt(ad.Pow(vGST, 2).Shift(delta * delta))).Scale(0.5)
	power := ad.Const(lambda, 2).Div(
		ad.Pow(vDS, 2).Scale(mu).Add(vEff.Scale(xi)).Shift(1))
	area := vDS.Scale(alpha).Mul(vEff.Scale(zeta).Shift(1))
	idsLim := ad.PowVar(vEff, power).Scale(beta)

	return idsLim.Mul(ad.Tanh(area))
}

func (n *NLCurrentSource) AddNonLinearStamp(st *Stamp, sol *Mat, col int, dt float64) {
	n1, n2 := n.N[0], n.N[1]

	r1 := branchVoltage(sol, n.R1Pos, n.R1Neg, col)
	r2 := branchVoltage(sol, n.R2Pos, n.R2Neg, col)

	drain := n.DrainCurrent(r1, r2)
	iEq := drain.At(0) - drain.At(1)*r1 - drain.At(2)*r2

	if n1 > 0 {
		st.S.Add(n1-1, 0, -iEq)
		if n.R1Pos > 0 {
			st.G.Add(n1-1, n.R1Pos-1, drain.At(1))
		}
		if n.R1Neg > 0 {
			st.G.Add(n1-1, n.R1Neg-1, -drain.At(1))
		}
		if n.R2Pos > 0 {
			st.G.Add(n1-1, n.R2Pos-1, drain.At(2))
		}
		if n.R2Neg > 0 {
			st.G.Add(n1-1, n.R2Neg-1, -drain.At(2))
		}
	}

	if n2 > 0 {
		st.S.Add(n2-1, 0, iEq)
		if n.R1Pos > 0 {
			st.G.Add(n2-1, n.R1Pos-1, -drain.At(1))
		}
		if n.R1Neg > 0 {
			st.G.Add(n2-1, n.R1Neg-1, drain.At(1))
		}
		if n.R2Pos > 0 {
			st.G.Add(n2-1, n.R2Pos-1, -drain.At(2))
		}
		if n.R2Neg > 0 {
			st.G.Add(n2-1, n.R2Neg-1, drain.At(2))
		}
	}
}

func (n *NLCurrentSource) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	n.AddNonLinearStamp(st, sol, 0, 0)
}
