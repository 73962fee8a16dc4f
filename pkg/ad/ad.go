// Package ad implements forward-mode automatic differentiation. Non-linear
// device models build their controlling voltages as Vars, evaluate the device
// equation once, and read value plus partials off the result, removing the
// need to hand-derive Jacobians.
package ad

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Var carries a primary value and a fixed-arity vector of partial
// derivatives. All operations are pure: receivers and operands are never
// mutated.
type Var[T constraints.Float] struct {
	Val     T
	Partial []T
}

// New constructs a Var seeded with the given partials. A controlling
// variable x_i is seeded with 1 in position i and 0 elsewhere.
func New[T constraints.Float](v T, partials ...T) Var[T] {
	p := make([]T, len(partials))
	copy(p, partials)
	return Var[T]{Val: v, Partial: p}
}

// Const lifts a constant: all n partials are zero.
func Const[T constraints.Float](v T, n int) Var[T] {
	return Var[T]{Val: v, Partial: make([]T, n)}
}

// At returns the value for index 0 and the i-th partial for i > 0.
func (a Var[T]) At(i int) T {
	if i == 0 {
		return a.Val
	}
	return a.Partial[i-1]
}

func (a Var[T]) String() string {
	return fmt.Sprintf("value %v partials %v", a.Val, a.Partial)
}

func (a Var[T]) clone() Var[T] {
	p := make([]T, len(a.Partial))
	copy(p, a.Partial)
	return Var[T]{Val: a.Val, Partial: p}
}

func (a Var[T]) Add(b Var[T]) Var[T] {
	out := a.clone()
	out.Val += b.Val
	for i := range out.Partial {
		out.Partial[i] += b.Partial[i]
	}
	return out
}

func (a Var[T]) Sub(b Var[T]) Var[T] {
	out := a.clone()
	out.Val -= b.Val
	for i := range out.Partial {
		out.Partial[i] -= b.Partial[i]
	}
	return out
}

func (a Var[T]) Mul(b Var[T]) Var[T] {
	out := a.clone()
	for i := range out.Partial {
		out.Partial[i] = b.Val*a.Partial[i] + a.Val*b.Partial[i]
	}
	out.Val = a.Val * b.Val
	return out
}

func (a Var[T]) Div(b Var[T]) Var[T] {
	out := a.clone()
	for i := range out.Partial {
		out.Partial[i] = (b.Val*a.Partial[i] - a.Val*b.Partial[i]) / (b.Val * b.Val)
	}
	out.Val = a.Val / b.Val
	return out
}

func (a Var[T]) Neg() Var[T] {
	out := a.clone()
	out.Val = -out.Val
	for i := range out.Partial {
		out.Partial[i] = -out.Partial[i]
	}
	return out
}

// Shift adds a scalar to the value; partials are untouched.
func (a Var[T]) Shift(k T) Var[T] {
	out := a.clone()
	out.Val += k
	return out
}

// Scale multiplies by a scalar.
func (a Var[T]) Scale(k T) Var[T] {
	out := a.clone()
	out.Val *= k
	for i := range out.Partial {
		out.Partial[i] *= k
	}
	return out
}

// apply lifts a scalar function through the chain rule: the value becomes
// f(v) and every partial is scaled by f'(v).
func apply[T constraints.Float](a Var[T], f, fPrime func(float64) float64) Var[T] {
	out := a.clone()
	out.Val = T(f(float64(a.Val)))
	d := T(fPrime(float64(a.Val)))
	for i := range out.Partial {
		out.Partial[i] *= d
	}
	return out
}

func Sin[T constraints.Float](a Var[T]) Var[T] { return apply(a, math.Sin, math.Cos) }

func Cos[T constraints.Float](a Var[T]) Var[T] {
	return apply(a, math.Cos, func(v float64) float64 { return -math.Sin(v) })
}

func Tan[T constraints.Float](a Var[T]) Var[T] {
	return apply(a, math.Tan, func(v float64) float64 {
		c := math.Cos(v)
		return 1 / (c * c)
	})
}

func Sinh[T constraints.Float](a Var[T]) Var[T] { return apply(a, math.Sinh, math.Cosh) }

func Cosh[T constraints.Float](a Var[T]) Var[T] { return apply(a, math.Cosh, math.Sinh) }

func Tanh[T constraints.Float](a Var[T]) Var[T] {
	return apply(a, math.Tanh, func(v float64) float64 {
		c := math.Cosh(v)
		return 1 / (c * c)
	})
}

func Exp[T constraints.Float](a Var[T]) Var[T] { return apply(a, math.Exp, math.Exp) }

func Sqrt[T constraints.Float](a Var[T]) Var[T] {
	return apply(a, math.Sqrt, func(v float64) float64 { return 0.5 / math.Sqrt(v) })
}

// Pow raises a to a scalar exponent.
func Pow[T constraints.Float](a Var[T], k T) Var[T] {
	ke := float64(k)
	return apply(a,
		func(v float64) float64 { return math.Pow(v, ke) },
		func(v float64) float64 { return ke * math.Pow(v, ke-1) })
}

// PowVar raises a to an AD exponent using
// u^(w-1) * (w*u' + u*ln(u)*w') per partial.
func PowVar[T constraints.Float](a, w Var[T]) Var[T] {
	out := a.clone()
	u, g := float64(a.Val), float64(w.Val)
	out.Val = T(math.Pow(u, g))
	for i := range out.Partial {
		uPrime := float64(a.Partial[i])
		gPrime := float64(w.Partial[i])
		out.Partial[i] = T(math.Pow(u, g-1) * (g*uPrime + u*math.Log(u)*gPrime))
	}
	return out
}
