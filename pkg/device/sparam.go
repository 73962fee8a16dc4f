package device

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/edp1096/wave-spice/pkg/fourier"
)

// SParamPort holds the Thevenin view of one port of a DTIR block.
type SParamPort struct {
	Positive int
	Negative int
	Current  int

	R    float64 // Thevenin resistance
	Beta float64 // 1 / (1 - s(p,p,0))
	S0   []float64
}

// impulseSeq is one pruned (p,c) impulse response: aligned time/amplitude
// pairs, index 0 always present.
type impulseSeq struct {
	time []float64
	data []float64
}

// SParamBlock models an N-port from sampled S-parameters via causal
// discrete-time impulse responses: the instantaneous part stamps statically
// as resistances and controlled sources, the history enters the source
// vector as a pruned convolution with past incident waves.
type SParamBlock struct {
	BaseElement
	Ports []SParamPort

	seq      []impulseSeq // numPorts x numPorts, row-major (p, c)
	numPorts int

	ZRef          float64
	FracMaxToKeep float64
}

func NewSParamBlock(name string, fracMaxToKeep float64, portNodes [][2]int, firstCurrentIndex int, touchstonePath string) (*SParamBlock, error) {
	b := &SParamBlock{
		BaseElement:   BaseElement{Name: name},
		numPorts:      len(portNodes),
		FracMaxToKeep: fracMaxToKeep,
	}
	b.Ports = make([]SParamPort, b.numPorts)
	for p, nodes := range portNodes {
		b.Ports[p] = SParamPort{
			Positive: nodes[0],
			Negative: nodes[1],
			Current:  firstCurrentIndex + p,
		}
		b.N = append(b.N, nodes[0], nodes[1])
	}

	if err := b.loadTouchstone(touchstonePath); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *SParamBlock) at(p, c int) *impulseSeq {
	return &b.seq[p*b.numPorts+c]
}

// loadTouchstone reads the sampled frequency response, runs the causality
// enforcer per port pair, and prunes the resulting impulse responses.
// Frequency values are taken as given; the unit header is skipped.
func (b *SParamBlock) loadTouchstone(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s-parameter block %s: %w", b.Name, err)
	}
	defer file.Close()

	b.ZRef = 50

	var freqs []float64
	// column-major pairs per data row: for each column c, for each row p
	sp := make([][]complex128, b.numPorts*b.numPorts)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var values []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Fields(line)
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("s-parameter block %s: bad value %q", b.Name, f)
			}
			values = append(values, v)
		}

		rowLen := 1 + 2*b.numPorts*b.numPorts
		for len(values) >= rowLen {
			freqs = append(freqs, values[0])
			k := 1
			for c := 0; c < b.numPorts; c++ {
				for p := 0; p < b.numPorts; p++ {
					sp[p*b.numPorts+c] = append(sp[p*b.numPorts+c],
						complex(values[k], values[k+1]))
					k += 2
				}
			}
			values = values[rowLen:]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("s-parameter block %s: %w", b.Name, err)
	}
	if len(freqs) < 2 {
		return fmt.Errorf("s-parameter block %s: need at least 2 frequency samples", b.Name)
	}

	b.seq = make([]impulseSeq, b.numPorts*b.numPorts)
	for p := 0; p < b.numPorts; p++ {
		b.Ports[p].S0 = make([]float64, b.numPorts)
		for c := 0; c < b.numPorts; c++ {
			causal := fourier.ForceCausal(freqs, sp[p*b.numPorts+c])

			threshold := 0.0
			for _, v := range causal.Data {
				threshold = math.Max(threshold, math.Abs(v))
			}
			threshold *= b.FracMaxToKeep

			seq := b.at(p, c)
			for i, v := range causal.Data {
				if i == 0 {
					seq.time = append(seq.time, 0)
					seq.data = append(seq.data, v)
					continue
				}
				if math.Abs(v) > threshold {
					seq.time = append(seq.time, float64(i)*causal.Ts-causal.Tau)
					seq.data = append(seq.data, v)
				}
			}

			b.Ports[p].S0[c] = seq.data[0]
		}
		b.Ports[p].Beta = 1 / (1 - b.at(p, p).data[0])
		b.Ports[p].R = b.Ports[p].Beta * b.ZRef * (1 + b.at(p, p).data[0])
	}
	return nil
}

// aWaveConvValue linearly interpolates the incident wave of port c at the
// history point t_n - t_k. Points at or before column 0, or whose upper
// interpolation column would touch the in-progress column n, contribute
// nothing.
func (b *SParamBlock) aWaveConvValue(portIndex int, sol *Mat, n int, sTimePoint, dt float64, sizeGA int) float64 {
	index := float64(n) - sTimePoint/dt
	if index <= 0 {
		return 0
	}
	floor := int(index)
	if floor <= 0 || floor+1 >= n {
		return 0
	}
	mix := index - float64(floor)

	port := &b.Ports[portIndex]
	var upp, low [3]float64
	if port.Positive != 0 {
		upp[0] = sol.At(port.Positive-1, floor+1)
		low[0] = sol.At(port.Positive-1, floor)
	}
	if port.Negative != 0 {
		upp[1] = sol.At(port.Negative-1, floor+1)
		low[1] = sol.At(port.Negative-1, floor)
	}
	upp[2] = sol.At(sizeGA+port.Current-1, floor+1)
	low[2] = sol.At(sizeGA+port.Current-1, floor)

	return (upp[0]-low[0])*mix + low[0] -
		(upp[1]-low[1])*mix - low[1] +
		((upp[2]-low[2])*mix+low[2])*b.ZRef
}

// portVoltage convolves the historic incident waves of every port with the
// pruned impulse responses towards port p.
func (b *SParamBlock) portVoltage(p int, sol *Mat, n int, dt float64, sizeGA int) float64 {
	total := 0.0
	for c := 0; c < b.numPorts; c++ {
		seq := b.at(p, c)
		for k := 1; k < len(seq.data); k++ {
			total += b.aWaveConvValue(c, sol, n, seq.time[k], dt, sizeGA) * seq.data[k]
		}
	}
	return b.Ports[p].Beta * total
}

func (b *SParamBlock) AddStaticStamp(st *Stamp) {
	for p := range b.Ports {
		port := &b.Ports[p]
		curr := st.CurrentRow(port.Current)

		st.G.Add(curr, curr, -port.R)
		stampBranchLink(st, port.Positive, port.Negative, curr)

		for c := range b.Ports {
			if c == p {
				continue
			}
			alpha := port.Beta * port.S0[c]
			if b.Ports[c].Positive != 0 {
				st.G.Add(curr, b.Ports[c].Positive-1, -alpha)
			}
			if b.Ports[c].Negative != 0 {
				st.G.Add(curr, b.Ports[c].Negative-1, alpha)
			}
			st.G.Add(curr, st.CurrentRow(b.Ports[c].Current), -b.ZRef*alpha)
		}
	}
}

func (b *SParamBlock) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	for p := range b.Ports {
		curr := st.CurrentRow(b.Ports[p].Current)
		st.S.Add(curr, 0, b.portVoltage(p, sol, n, dt, st.SizeGA))
	}
}

// At DC the full impulse-response sums replace the instantaneous samples:
// the port resistance and cross-port gains grow to their zero-frequency
// values and the history source is zero.
func (b *SParamBlock) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	for p := range b.Ports {
		port := &b.Ports[p]
		curr := st.CurrentRow(port.Current)

		sppSum := 0.0
		for _, v := range b.at(p, p).data {
			sppSum += v
		}
		rPrime := port.Beta * b.ZRef * (1 + sppSum) / (1 - port.Beta*sppSum)
		st.G.Add(curr, curr, -rPrime)
		stampBranchLink(st, port.Positive, port.Negative, curr)

		for c := range b.Ports {
			if c == p {
				continue
			}
			alphaPrime := 0.0
			for _, v := range b.at(p, c).data {
				alphaPrime += v
			}
			alphaPrime = port.Beta * alphaPrime
			alphaPrime += port.Beta * port.S0[c]
			alphaPrime /= 1 - port.Beta*sppSum

			if b.Ports[c].Positive != 0 {
				st.G.Add(curr, b.Ports[c].Positive-1, -alphaPrime)
			}
			if b.Ports[c].Negative != 0 {
				st.G.Add(curr, b.Ports[c].Negative-1, alphaPrime)
			}
			st.G.Add(curr, st.CurrentRow(b.Ports[c].Current), -b.ZRef*alphaPrime)
		}
	}
}
