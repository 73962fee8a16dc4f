package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/edp1096/wave-spice/pkg/analysis"
	"github.com/edp1096/wave-spice/pkg/netlist"
	"github.com/edp1096/wave-spice/pkg/output"
	"github.com/edp1096/wave-spice/pkg/util"
)

func main() {
	quiet := flag.Bool("q", false, "suppress progress output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <netlist>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	netlistPath := flag.Arg(0)

	nl, err := netlist.ParseFile(netlistPath)
	if err != nil {
		log.Fatalf("parsing %s: %v", netlistPath, err)
	}
	if !nl.HasTransient {
		log.Fatalf("parsing %s: no .transient directive", netlistPath)
	}

	ckt := nl.Circuit
	if !*quiet {
		fmt.Printf("%s: %d nodes, %d currents, %d steps of %s\n",
			netlistPath, ckt.NumNodes, ckt.NumCurrents, int((nl.StopTime-nl.StartTime)/nl.TimeStep),
			util.FormatValueFactor(nl.TimeStep, "s"))
	}

	tr := analysis.NewTransient(ckt, nl.StartTime, nl.StopTime, nl.TimeStep, nl.PerformDC)

	started := time.Now()
	if err := tr.Execute(); err != nil {
		log.Fatalf("simulating %s: %v", netlistPath, err)
	}
	if !*quiet {
		fmt.Printf("simulated in %v\n", time.Since(started))
	}
	if len(tr.NonConverged) > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d time steps did not converge within the iteration cap\n",
			len(tr.NonConverged))
	}

	if err := output.WriteTable(nl.OutputFile, tr.Solution, ckt.NumNodes, ckt.NumCurrents, nl.TimeStep); err != nil {
		log.Fatalf("writing %s: %v", nl.OutputFile, err)
	}

	for i, nodes := range nl.Graphs {
		name := fmt.Sprintf("graph%d.png", i+1)
		if err := output.WriteGraph(name, tr.Solution, nodes, nl.TimeStep); err != nil {
			log.Fatalf("writing %s: %v", name, err)
		}
	}
}
