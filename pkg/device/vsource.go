package device

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// VoltageSource is an ideal DC voltage source on its own branch current.
type VoltageSource struct {
	BaseElement
	Value        float64
	CurrentIndex int
}

func NewVoltageSource(name string, n1, n2 int, value float64, currentIndex int) *VoltageSource {
	return &VoltageSource{
		BaseElement:  BaseElement{Name: name, N: []int{n1, n2}},
		Value:        value,
		CurrentIndex: currentIndex,
	}
}

func (v *VoltageSource) AddStaticStamp(st *Stamp) {
	curr := st.CurrentRow(v.CurrentIndex)
	stampBranchLink(st, v.N[0], v.N[1], curr)
	st.S.Add(curr, 0, v.Value)
}

func (v *VoltageSource) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	v.AddStaticStamp(st)
}

// SinusoidalVoltageSource drives offset + V*sin(2*pi*f*t + phase), with the
// phase given in degrees.
type SinusoidalVoltageSource struct {
	BaseElement
	V            float64
	Frequency    float64
	Offset       float64
	PhaseDeg     float64
	CurrentIndex int
}

func NewSinusoidalVoltageSource(name string, n1, n2 int, v, freq, offset, phaseDeg float64, currentIndex int) *SinusoidalVoltageSource {
	return &SinusoidalVoltageSource{
		BaseElement:  BaseElement{Name: name, N: []int{n1, n2}},
		V:            v,
		Frequency:    freq,
		Offset:       offset,
		PhaseDeg:     phaseDeg,
		CurrentIndex: currentIndex,
	}
}

func (v *SinusoidalVoltageSource) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	curr := st.CurrentRow(v.CurrentIndex)
	stampBranchLink(st, v.N[0], v.N[1], curr)

	t := float64(n) * dt
	st.S.Add(curr, 0, v.Offset+v.V*math.Sin(2*math.Pi*v.Frequency*t+math.Pi*v.PhaseDeg/180))
}

// At DC the source contributes its t=0 value.
func (v *SinusoidalVoltageSource) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	v.AddDynamicStamp(st, sol, 0, 0)
}

// TimeSeriesVoltageSource replays a sampled waveform, linearly interpolated
// and repeated modulo the final sample time. The cursor into the series is
// cached between steps so the search is incremental.
type TimeSeriesVoltageSource struct {
	BaseElement
	CurrentIndex int
	Times        []float64
	Values       []float64
	lastIndex    int
}

func NewTimeSeriesVoltageSource(name string, n1, n2 int, timescale float64, path string, currentIndex int) (*TimeSeriesVoltageSource, error) {
	src := &TimeSeriesVoltageSource{
		BaseElement:  BaseElement{Name: name, N: []int{n1, n2}},
		CurrentIndex: currentIndex,
	}
	if err := src.readSeries(timescale, path); err != nil {
		return nil, err
	}
	if len(src.Times) < 2 {
		return nil, fmt.Errorf("time series source %s: need at least 2 samples, got %d", name, len(src.Times))
	}
	return src, nil
}

func (v *TimeSeriesVoltageSource) readSeries(timescale float64, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("time series source %s: %w", v.Name, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		t, err1 := strconv.ParseFloat(fields[0], 64)
		val, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			continue // header or comment row
		}
		v.Times = append(v.Times, t*timescale)
		v.Values = append(v.Values, val)
	}
	return scanner.Err()
}

// seriesIndex advances a cursor until it brackets timeMod.
func (v *TimeSeriesVoltageSource) seriesIndex(start int, timeMod float64) int {
	idx := start
	m := len(v.Times)
	for timeMod > v.Times[(idx+1)%m] ||
		(idx != 0 && timeMod < v.Times[(idx-1)%m]) {
		idx = (idx + 1) % m
	}
	return idx
}

func (v *TimeSeriesVoltageSource) lerp(lowIndex int, timeVal float64) float64 {
	m := len(v.Times)
	diffTS := v.Times[(lowIndex+1)%m] - v.Times[lowIndex]
	diffTV := timeVal - v.Times[lowIndex]
	diffDS := v.Values[(lowIndex+1)%m] - v.Values[lowIndex]
	return v.Values[lowIndex] + diffDS*diffTV/diffTS
}

func (v *TimeSeriesVoltageSource) AddDynamicStamp(st *Stamp, sol *Mat, n int, dt float64) {
	curr := st.CurrentRow(v.CurrentIndex)
	stampBranchLink(st, v.N[0], v.N[1], curr)

	timeMod := math.Mod(float64(n)*dt, v.Times[len(v.Times)-1])
	idx := v.seriesIndex(v.lastIndex, timeMod)
	st.S.Add(curr, 0, v.lerp(idx, timeMod))
}

func (v *TimeSeriesVoltageSource) UpdateState(sol *Mat, n int, dt float64, sizeGA int) {
	timeMod := math.Mod(float64(n)*dt, v.Times[len(v.Times)-1])
	v.lastIndex = v.seriesIndex(v.lastIndex, timeMod)
}

func (v *TimeSeriesVoltageSource) AddDCStamp(st *Stamp, sol *Mat, numCurrents int) {
	v.AddDynamicStamp(st, sol, 0, 0)
}
