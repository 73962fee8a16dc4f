package device

// Integration selects the companion-model discretization of the
// energy-storage elements.
type Integration int

const (
	Trapezoidal Integration = iota
	BackwardEuler
)

// companionConductance returns G_eq of a capacitor companion model for the
// chosen method. The inductor uses the reciprocal form directly.
func companionConductance(method Integration, c, dt float64) float64 {
	if method == Trapezoidal {
		return 2 * c / dt
	}
	return c / dt
}
