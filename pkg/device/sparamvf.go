package device

import (
	"bufio"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"strconv"
	"strings"
)

// prrData holds the pole-residue fit of one ordered port pair (p, c) and
// the timestep-dependent convolution weights derived from it.
type prrData struct {
	Poles     []complex128
	Residues  []complex128
	Remainder complex128

	// per-pole weights of the current, previous and 2nd-previous a-wave
	lambdaP []complex128
	muP     []complex128
	nuP     []complex128
	expA    []complex128

	lambda complex128
	mu     complex128
	nu     complex128

	// per-pole convolution history
	x []complex128
}

func (d *prrData) alloc() {
	n := len(d.Poles)
	d.lambdaP = make([]complex128, n)
	d.muP = make([]complex128, n)
	d.nuP = make([]complex128, n)
	d.expA = make([]complex128, n)
	d.x = make([]complex128, n)
}

// VFPort is one port of a pole-residue S-parameter block.
type VFPort struct {
	Positive int
	Negative int
	Current  int

	Beta  complex128
	Alpha []complex128
	R     complex128

	From []prrData
}

// SParamBlockVF models an N-port from a pole-residue fit of its
// S-parameters. The convolution state is a single complex scalar per pole,
// updated recursively; the first time step uses a piecewise-linear
// discretization of the incident wave, later steps a piecewise-quadratic
// one.
type SParamBlockVF struct {
	BaseElement
	Ports    []VFPort
	NumPorts int

	FirstOrder bool
	ZRef       float64

	timestep float64
}

func NewSParamBlockVF(name string, portNodes [][2]int, firstCurrentIndex int, tablePath string) (*SParamBlockVF, error) {
	b := &SParamBlockVF{
		BaseElement: BaseElement{Name: name},
		NumPorts:    len(portNodes),
		FirstOrder:  true,
	}
	b.Ports = make([]VFPort, b.NumPorts)
	for p, nodes := range portNodes {
		b.Ports[p] = VFPort{
			Positive: nodes[0],
			Negative: nodes[1],
			Current:  firstCurrentIndex + p,
		}
		b.N = append(b.N, nodes[0], nodes[1])
	}

	if err := b.loadPoleResidue(tablePath); err != nil {
		return nil, err
	}
	return b, nil
}

// loadPoleResidue reads the fitted table: z_ref first, then per ordered
// port pair a remainder line, a poles line, and a residues line, each as
// alternating (Re, Im) scalars.
func (b *SParamBlockVF) loadPoleResidue(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s-parameter block %s: %w", b.Name, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("s-parameter block %s: %w", b.Name, err)
	}
	if len(lines) < 1+3*b.NumPorts*b.NumPorts {
		return fmt.Errorf("s-parameter block %s: truncated pole-residue table", b.Name)
	}

	zRef, err := strconv.ParseFloat(strings.Fields(lines[0])[0], 64)
	if err != nil {
		return fmt.Errorf("s-parameter block %s: bad z_ref: %w", b.Name, err)
	}
	b.ZRef = zRef

	row := 1
	for p := 0; p < b.NumPorts; p++ {
		b.Ports[p].Alpha = make([]complex128, b.NumPorts)
		b.Ports[p].From = make([]prrData, b.NumPorts)
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]

			remainder, err := parseComplexLine(lines[row])
			if err != nil || len(remainder) != 1 {
				return fmt.Errorf("s-parameter block %s: bad remainder line %d", b.Name, row)
			}
			from.Remainder = remainder[0]

			poles, err := parseComplexLine(lines[row+1])
			if err != nil {
				return fmt.Errorf("s-parameter block %s: bad poles line %d: %v", b.Name, row+1, err)
			}
			residues, err := parseComplexLine(lines[row+2])
			if err != nil || len(residues) != len(poles) {
				return fmt.Errorf("s-parameter block %s: residues do not match poles at line %d", b.Name, row+2)
			}

			from.Poles = poles
			from.Residues = residues
			from.alloc()
			row += 3
		}
	}
	return nil
}

func parseComplexLine(line string) ([]complex128, error) {
	fields := strings.Fields(line)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of scalars in complex line")
	}
	out := make([]complex128, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		re, err1 := strconv.ParseFloat(fields[i], 64)
		im, err2 := strconv.ParseFloat(fields[i+1], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("bad complex pair %q %q", fields[i], fields[i+1])
		}
		out = append(out, complex(re, im))
	}
	return out, nil
}

// aWave is the incident wave (v + z_ref*i)/(2*sqrt(z_ref)) of port p at
// solution column col.
func (b *SParamBlockVF) aWave(p int, sol *Mat, col, sizeGA int) float64 {
	port := &b.Ports[p]
	v := 0.0
	if port.Positive != 0 {
		v += sol.At(port.Positive-1, col)
	}
	if port.Negative != 0 {
		v -= sol.At(port.Negative-1, col)
	}
	return (v + sol.At(sizeGA+port.Current-1, col)*b.ZRef) / (2 * math.Sqrt(b.ZRef))
}

// bWave is the reflected wave (v - z_ref*i)/(2*sqrt(z_ref)).
func (b *SParamBlockVF) bWave(p int, sol *Mat, col, sizeGA int) float64 {
	port := &b.Ports[p]
	v := 0.0
	if port.Positive != 0 {
		v += sol.At(port.Positive-1, col)
	}
	if port.Negative != 0 {
		v -= sol.At(port.Negative-1, col)
	}
	return (v - sol.At(sizeGA+port.Current-1, col)*b.ZRef) / (2 * math.Sqrt(b.ZRef))
}

// history accumulates the recursive pole states plus the lagged a-wave
// terms of every source port.
func (b *SParamBlockVF) history(p int, sol *Mat, n, sizeGA int) complex128 {
	var total complex128
	for c := 0; c < b.NumPorts; c++ {
		from := &b.Ports[p].From[c]
		for rho := range from.Poles {
			total += from.x[rho] * from.expA[rho]
		}
		total += from.mu * complex(b.aWave(c, sol, n-1, sizeGA), 0)
		if n > 1 {
			total += from.nu * complex(b.aWave(c, sol, n-2, sizeGA), 0)
		}
	}
	return 2 * total * complex(math.Sqrt(b.ZRef), 0)
}

func (b *SParamBlockVF) portVoltage(p int, sol *Mat, n, sizeGA int) float64 {
	return real(b.history(p, sol, n, sizeGA) * b.Ports[p].Beta)
}

func (b *SParamBlockVF) AddStaticStamp(st *Stamp) {
	for p := range b.Ports {
		port := &b.Ports[p]
		curr := st.CurrentRow(port.Current)

		st.G.Add(curr, curr, real(-port.R))
		stampBranchLink(st, port.Positive, port.Negative, curr)

		for c := range b.Ports {
			if c == p {
				continue
			}
			if b.Ports[c].Positive != 0 {
				st.G.Add(curr, b.Ports[c].Positive-1, real(-port.Alpha[c]))
			}
			if b.Ports[c].Negative != 0 {
				st.G.Add(curr, b.Ports[c].Negative-1, real(port.Alpha[c]))
			}
			st.G.Add(curr, st.CurrentRow(b.Ports[c].Current),
				real(-complex(b.ZRef, 0)*port.Alpha[c]))
		}
	}
}

func (b *SParamBlockVF) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	for p := range b.Ports {
		curr := st.CurrentRow(b.Ports[p].Current)
		st.S.Add(curr, 0, b.portVoltage(p, sol, n, st.SizeGA))
	}
}

// UpdateState advances each pole state; after the first accepted step the
// discretization is promoted from first to second order.
func (b *SParamBlockVF) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	for p := 0; p < b.NumPorts; p++ {
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]
			a0 := complex(b.aWave(c, sol, n, sizeGA), 0)
			a1 := complex(b.aWave(c, sol, n-1, sizeGA), 0)
			for rho := range from.Poles {
				from.x[rho] = from.x[rho]*from.expA[rho] +
					from.lambdaP[rho]*a0 + from.muP[rho]*a1
				if !b.FirstOrder {
					from.x[rho] += from.nuP[rho] * complex(b.aWave(c, sol, n-2, sizeGA), 0)
				}
			}
		}
	}

	if b.FirstOrder && n >= 1 {
		b.setSecondOrder(b.timestep)
	}
}

// setConstants derives the Thevenin view (beta, R, cross-port alphas) from
// the summed convolution weights.
func (b *SParamBlockVF) setConstants() {
	for p := 0; p < b.NumPorts; p++ {
		port := &b.Ports[p]
		port.Beta = 1 / (1 - port.From[p].lambda - port.From[p].Remainder)
		port.R = complex(b.ZRef, 0) * (1 + port.From[p].lambda + port.From[p].Remainder) * port.Beta

		for c := 0; c < b.NumPorts; c++ {
			if c == p {
				port.Alpha[c] = 0
				continue
			}
			port.Alpha[c] = (port.From[c].lambda + port.From[c].Remainder) * port.Beta
		}
	}
}

func (b *SParamBlockVF) setFirstOrder(dt float64) {
	b.FirstOrder = true

	for p := 0; p < b.NumPorts; p++ {
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]
			from.lambda, from.mu, from.nu = 0, 0, 0
			for rho := range from.Poles {
				pole := from.Poles[rho]
				residue := from.Residues[rho]
				a := pole * complex(dt, 0)
				ea := cmplx.Exp(a)

				from.lambdaP[rho] = -(residue / pole) * (1 + (1-ea)/a)
				from.lambda += from.lambdaP[rho]

				from.muP[rho] = -(residue / pole) * ((ea-1)/a - ea)
				from.mu += from.muP[rho]

				from.nuP[rho] = 0
			}
		}
	}

	b.setConstants()
}

func (b *SParamBlockVF) setSecondOrder(dt float64) {
	b.FirstOrder = false

	for p := 0; p < b.NumPorts; p++ {
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]
			from.lambda, from.mu, from.nu = 0, 0, 0
			for rho := range from.Poles {
				pole := from.Poles[rho]
				residue := from.Residues[rho]
				a := pole * complex(dt, 0)
				ea := cmplx.Exp(a)

				from.lambdaP[rho] = -(residue / pole) *
					((1-ea)/(a*a) + (3-ea)/(2*a) + 1)
				from.lambda += from.lambdaP[rho]

				from.muP[rho] = -(residue / pole) *
					(-2*(1-ea)/(a*a) - 2/a - ea)
				from.mu += from.muP[rho]

				from.nuP[rho] = -(residue / pole) *
					((1-ea)/(a*a) + (1+ea)/(2*a))
				from.nu += from.nuP[rho]
			}
		}
	}

	b.setConstants()
}

func (b *SParamBlockVF) SetTimestep(dt float64) {
	b.timestep = dt
	for p := 0; p < b.NumPorts; p++ {
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]
			for rho := range from.Poles {
				from.expA[rho] = cmplx.Exp(from.Poles[rho] * complex(dt, 0))
			}
		}
	}

	if b.FirstOrder {
		b.setFirstOrder(dt)
	} else {
		b.setSecondOrder(dt)
	}
}

// The DC view sums each pole's steady-state gain; the history source is
// zero because the recursion has reached its fixed point.
func (b *SParamBlockVF) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	xSum := make([]complex128, b.NumPorts*b.NumPorts)
	for p := 0; p < b.NumPorts; p++ {
		for c := 0; c < b.NumPorts; c++ {
			from := &b.Ports[p].From[c]
			for rho := range from.Poles {
				xSum[p*b.NumPorts+c] += -(from.lambdaP[rho] + from.muP[rho]) /
					(from.expA[rho] - 1)
			}
			xSum[p*b.NumPorts+c] += from.Remainder
		}
	}

	for p := range b.Ports {
		port := &b.Ports[p]
		curr := st.CurrentRow(port.Current)

		beta := 1 / (1 - xSum[p*b.NumPorts+p])
		st.G.Add(curr, curr, real(-complex(b.ZRef, 0)*(1+xSum[p*b.NumPorts+p])*beta))
		stampBranchLink(st, port.Positive, port.Negative, curr)

		for c := range b.Ports {
			if c == p {
				continue
			}
			if b.Ports[c].Positive != 0 {
				st.G.Add(curr, b.Ports[c].Positive-1, real(-xSum[p*b.NumPorts+c]*beta))
			}
			if b.Ports[c].Negative != 0 {
				st.G.Add(curr, b.Ports[c].Negative-1, real(xSum[p*b.NumPorts+c]*beta))
			}
			st.G.Add(curr, st.CurrentRow(b.Ports[c].Current),
				real(-complex(b.ZRef, 0)*xSum[p*b.NumPorts+c]*beta))
		}
	}
}
