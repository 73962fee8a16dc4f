// Package netlist parses the line-oriented circuit description into an
// assembled circuit plus the simulation directives.
package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/wave-spice/pkg/circuit"
	"github.com/edp1096/wave-spice/pkg/device"
)

// ParseError reports a malformed netlist line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("netlist line %d: %s (%q)", e.Line, e.Msg, e.Text)
}

// ErrUnsupportedDevice marks a recognized prefix whose device model is not
// implemented (P-MOS variants, fit-on-load S-parameter blocks).
var ErrUnsupportedDevice = errors.New("unsupported device")

// Netlist is the parsed simulation description.
type Netlist struct {
	Circuit *circuit.Circuit

	StartTime    float64
	StopTime     float64
	TimeStep     float64
	HasTransient bool

	PerformDC  bool
	OutputFile string
	Graphs     [][]int
}

var (
	transientRegex  = regexp.MustCompile(`^\.transient\((.+?),(.+?),(.+?)\)\s*$`)
	graphRegex      = regexp.MustCompile(`^\.graph\((.+?)\)\s*$`)
	noDCRegex       = regexp.MustCompile(`^\.nodc\s*$`)
	outputFileRegex = regexp.MustCompile(`^\.outputFile\(\s*['"](.+?)['"]\s*\)\s*$`)
	quotedPathRegex = regexp.MustCompile(`['"]([^'"]*)['"]`)
)

var unitMap = map[string]float64{
	"T":   1e12,
	"G":   1e9,
	"meg": 1e6,
	"K":   1e3,
	"k":   1e3,
	"m":   1e-3,
	"u":   1e-6,
	"n":   1e-9,
	"p":   1e-12,
	"f":   1e-15,
}

var unitValueRegex = regexp.MustCompile(`^([0-9+\-.eE]+)(T|G|meg|K|k|m|u|n|p|f)$`)

// parseValue accepts plain floats plus the usual engineering suffixes.
func parseValue(s string) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	if m := unitValueRegex.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v * unitMap[m[2]], nil
		}
	}
	return 0, fmt.Errorf("bad numeric value %q", s)
}

// parser accumulates elements and unknown counts while scanning lines; the
// circuit is sized and populated only once the whole file is read.
type parser struct {
	dir string

	elements      []device.Component
	numNodes      int
	numCurrents   int
	numDCCurrents int

	netlist *Netlist
}

// ParseFile reads a netlist from disk. File paths referenced by elements
// are resolved relative to the netlist's directory.
func ParseFile(path string) (*Netlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("netlist: %w", err)
	}
	defer file.Close()

	return Parse(file, filepath.Dir(path))
}

// Parse reads a netlist from r; dir anchors relative data-file paths.
func Parse(r io.Reader, dir string) (*Netlist, error) {
	p := &parser{
		dir: dir,
		netlist: &Netlist{
			PerformDC:  true,
			OutputFile: "datadump.txt",
		},
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}

		var err error
		if strings.HasPrefix(line, ".") {
			err = p.parseDirective(line)
		} else {
			err = p.parseElement(line)
		}
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = lineNum
				return nil, perr
			}
			return nil, fmt.Errorf("netlist line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("netlist: %w", err)
	}

	ckt := circuit.New(p.numNodes, p.numCurrents, p.numDCCurrents)
	for _, el := range p.elements {
		ckt.AddElement(el)
	}
	p.netlist.Circuit = ckt

	return p.netlist, nil
}

func (p *parser) parseDirective(line string) error {
	if m := transientRegex.FindStringSubmatch(line); m != nil {
		vals := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := parseValue(strings.TrimSpace(m[i+1]))
			if err != nil {
				return &ParseError{Text: line, Msg: "bad .transient parameter"}
			}
			vals[i] = v
		}
		p.netlist.StartTime = vals[0]
		p.netlist.StopTime = vals[1]
		p.netlist.TimeStep = vals[2]
		p.netlist.HasTransient = true
		return nil
	}

	if m := graphRegex.FindStringSubmatch(line); m != nil {
		var nodes []int
		for _, f := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return &ParseError{Text: line, Msg: "bad .graph node index"}
			}
			nodes = append(nodes, n)
		}
		p.netlist.Graphs = append(p.netlist.Graphs, nodes)
		return nil
	}

	if noDCRegex.MatchString(line) {
		p.netlist.PerformDC = false
		return nil
	}

	if m := outputFileRegex.FindStringSubmatch(line); m != nil {
		p.netlist.OutputFile = m[1]
		return nil
	}

	return &ParseError{Text: line, Msg: "unknown directive"}
}

// node parses a node index field and widens the node count.
func (p *parser) node(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad node index %q", field)
	}
	if n > p.numNodes {
		p.numNodes = n
	}
	return n, nil
}

// dataPath extracts the quoted file path from a line and resolves it.
func (p *parser) dataPath(line string) (string, error) {
	m := quotedPathRegex.FindStringSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("missing quoted file path")
	}
	path := m[1]
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}
	return path, nil
}

func (p *parser) add(el device.Component) {
	p.elements = append(p.elements, el)
}

func (p *parser) parseElement(line string) error {
	fields := strings.Fields(line)
	name := fields[0]

	var err error
	switch {
	case strings.HasPrefix(name, "CN"):
		err = p.parseNLCapacitor(name, fields)
	case strings.HasPrefix(name, "C"):
		err = p.parseTwoTerminalValue(name, fields, func(n1, n2 int, v float64) device.Component {
			return device.NewCapacitor(name, n1, n2, v)
		})
	case strings.HasPrefix(name, "R"):
		err = p.parseResistor(name, fields)
	case strings.HasPrefix(name, "L"):
		err = p.parseTwoTerminalValue(name, fields, func(n1, n2 int, v float64) device.Component {
			p.numDCCurrents++
			return device.NewInductor(name, n1, n2, v, p.numDCCurrents)
		})
	case strings.HasPrefix(name, "IN"):
		err = p.parseNLCurrentSource(name, fields)
	case strings.HasPrefix(name, "I"):
		err = p.parseTwoTerminalValue(name, fields, func(n1, n2 int, v float64) device.Component {
			return device.NewCurrentSource(name, n1, n2, v)
		})
	case strings.HasPrefix(name, "VS"):
		err = p.parseSinusoidalSource(name, fields)
	case strings.HasPrefix(name, "VT"):
		err = p.parseTimeSeriesSource(name, fields, line)
	case strings.HasPrefix(name, "V"):
		err = p.parseTwoTerminalValue(name, fields, func(n1, n2 int, v float64) device.Component {
			p.numCurrents++
			return device.NewVoltageSource(name, n1, n2, v, p.numCurrents)
		})
	case strings.HasPrefix(name, "D"):
		err = p.parseDiode(name, fields)
	case strings.HasPrefix(name, "QN"), strings.HasPrefix(name, "QP"), strings.HasPrefix(name, "QM"):
		err = p.parseTransistor(name, fields)
	case strings.HasPrefix(name, "SV"):
		err = p.parseSParamVF(name, fields, line)
	case strings.HasPrefix(name, "S"):
		err = p.parseSParam(name, fields, line)
	default:
		return &ParseError{Text: line, Msg: fmt.Sprintf("unknown element type %q", name)}
	}

	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) && !errors.Is(err, ErrUnsupportedDevice) {
			err = &ParseError{Text: line, Msg: err.Error()}
		}
	}
	return err
}

// parseTwoTerminalValue handles the common "X n1 n2 value" shape.
func (p *parser) parseTwoTerminalValue(name string, fields []string, build func(n1, n2 int, v float64) device.Component) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected %s n1 n2 value", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	v, err := parseValue(fields[3])
	if err != nil {
		return err
	}
	p.add(build(n1, n2, v))
	return nil
}

func (p *parser) parseResistor(name string, fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected %s n1 n2 value [g]", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	v, err := parseValue(fields[3])
	if err != nil {
		return err
	}

	currentIndex := 0
	if len(fields) > 4 {
		// trailing group flag puts the resistor on its own current unknown
		p.numCurrents++
		currentIndex = p.numCurrents
	}
	p.add(device.NewResistor(name, n1, n2, v, currentIndex))
	return nil
}

func (p *parser) parseNLCapacitor(name string, fields []string) error {
	if len(fields) < 7 {
		return fmt.Errorf("expected %s n1 n2 Cp Co P10 P11", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	vals := make([]float64, 4)
	for i := range vals {
		if vals[i], err = parseValue(fields[3+i]); err != nil {
			return err
		}
	}
	p.add(device.NewNLCapacitor(name, n1, n2, vals[0], vals[1], vals[2], vals[3]))
	return nil
}

func (p *parser) parseNLCurrentSource(name string, fields []string) error {
	if len(fields) < 7 {
		return fmt.Errorf("expected %s n1 n2 r1+ r1- r2+ r2-", name)
	}
	nodes := make([]int, 6)
	var err error
	for i := range nodes {
		if nodes[i], err = p.node(fields[1+i]); err != nil {
			return err
		}
	}
	p.add(device.NewNLCurrentSource(name, nodes[0], nodes[1], nodes[2], nodes[3], nodes[4], nodes[5]))
	return nil
}

func (p *parser) parseSinusoidalSource(name string, fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected %s n1 n2 V [freq offset phaseDeg]", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	v, err := parseValue(fields[3])
	if err != nil {
		return err
	}

	freq, offset, phase := 1.0, 0.0, 0.0
	optional := []*float64{&freq, &offset, &phase}
	for i, dst := range optional {
		if len(fields) > 4+i {
			if *dst, err = parseValue(fields[4+i]); err != nil {
				return err
			}
		}
	}

	p.numCurrents++
	p.add(device.NewSinusoidalVoltageSource(name, n1, n2, v, freq, offset, phase, p.numCurrents))
	return nil
}

func (p *parser) parseTimeSeriesSource(name string, fields []string, line string) error {
	if len(fields) < 5 {
		return fmt.Errorf("expected %s n1 n2 timescale \"path\"", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	timescale, err := parseValue(fields[3])
	if err != nil {
		return err
	}
	path, err := p.dataPath(line)
	if err != nil {
		return err
	}

	p.numCurrents++
	src, err := device.NewTimeSeriesVoltageSource(name, n1, n2, timescale, path, p.numCurrents)
	if err != nil {
		return err
	}
	p.add(src)
	return nil
}

func (p *parser) parseDiode(name string, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("expected %s n1 n2", name)
	}
	n1, err := p.node(fields[1])
	if err != nil {
		return err
	}
	n2, err := p.node(fields[2])
	if err != nil {
		return err
	}
	p.add(device.NewDiode(name, n1, n2))
	return nil
}

func (p *parser) parseTransistor(name string, fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("expected %s with 3 terminal nodes", name)
	}
	nodes := make([]int, 3)
	var err error
	for i := range nodes {
		if nodes[i], err = p.node(fields[1+i]); err != nil {
			return err
		}
	}

	switch {
	case strings.HasPrefix(name, "QN"):
		p.add(device.NewBJTN(name, nodes[0], nodes[1], nodes[2]))
	case strings.HasPrefix(name, "QP"):
		p.add(device.NewBJTP(name, nodes[0], nodes[1], nodes[2]))
	case strings.HasPrefix(name, "QMN"):
		p.add(device.NewNLNMOS(name, nodes[0], nodes[1], nodes[2]))
	default:
		return fmt.Errorf("%w: transistor %q", ErrUnsupportedDevice, name)
	}
	return nil
}

// parseSParamPorts reads numPorts (positive, negative) node pairs starting
// at fields[first] and reserves one current unknown per port.
func (p *parser) parseSParamPorts(fields []string, first, numPorts int) ([][2]int, int, error) {
	if len(fields) < first+2*numPorts {
		return nil, 0, fmt.Errorf("expected %d port node pairs", numPorts)
	}
	ports := make([][2]int, numPorts)
	for i := 0; i < numPorts; i++ {
		pos, err := p.node(fields[first+2*i])
		if err != nil {
			return nil, 0, err
		}
		neg, err := p.node(fields[first+2*i+1])
		if err != nil {
			return nil, 0, err
		}
		ports[i] = [2]int{pos, neg}
	}
	firstCurrent := p.numCurrents + 1
	p.numCurrents += numPorts
	return ports, firstCurrent, nil
}

func (p *parser) parseSParam(name string, fields []string, line string) error {
	if len(fields) < 3 {
		return fmt.Errorf("expected %s fracMaxToKeep numPorts ports... \"touchstone\"", name)
	}
	frac, err := parseValue(fields[1])
	if err != nil {
		return err
	}
	numPorts, err := strconv.Atoi(fields[2])
	if err != nil || numPorts < 1 {
		return fmt.Errorf("bad port count %q", fields[2])
	}
	ports, firstCurrent, err := p.parseSParamPorts(fields, 3, numPorts)
	if err != nil {
		return err
	}
	path, err := p.dataPath(line)
	if err != nil {
		return err
	}

	block, err := device.NewSParamBlock(name, frac, ports, firstCurrent, path)
	if err != nil {
		return err
	}
	p.add(block)
	return nil
}

func (p *parser) parseSParamVF(name string, fields []string, line string) error {
	if strings.HasPrefix(name, "SVF") {
		return fmt.Errorf("%w: %q requires an external fitting engine; use SVP with a pre-fit table", ErrUnsupportedDevice, name)
	}
	if !strings.HasPrefix(name, "SVP") {
		return fmt.Errorf("%w: %q", ErrUnsupportedDevice, name)
	}
	if len(fields) < 2 {
		return fmt.Errorf("expected %s numPorts ports... \"table\"", name)
	}
	numPorts, err := strconv.Atoi(fields[1])
	if err != nil || numPorts < 1 {
		return fmt.Errorf("bad port count %q", fields[1])
	}
	ports, firstCurrent, err := p.parseSParamPorts(fields, 2, numPorts)
	if err != nil {
		return err
	}
	path, err := p.dataPath(line)
	if err != nil {
		return err
	}

	block, err := device.NewSParamBlockVF(name, ports, firstCurrent, path)
	if err != nil {
		return err
	}
	p.add(block)
	return nil
}
