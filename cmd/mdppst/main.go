package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Software trigger filter for MDPP SCP single readout.
 *
 * Description:	Reads ring items from one ring buffer URI, regroups physics
 *		event hits into software-trigger coincidence windows around
 *		a chosen channel, and writes the result to another ring
 *		buffer URI.  Everything that is not a physics event passes
 *		through untouched (except event-count items, which become
 *		stale and are dropped).
 *
 *		Online ring buffers are never exhausted; for those this
 *		program simply never exits.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strconv"

	mdppst "github.com/geniejhang/mdppst/src"
	"github.com/spf13/pflag"
)

func usage(msg string) {
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	fmt.Fprintf(os.Stderr, "= Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s [options] inRingURI outRingURI trigCh winStart winWidth\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        inRingURI - the file: or tcp: URI that describes where data comes from\n")
	fmt.Fprintf(os.Stderr, "       outRingURI - the file: or tcp: URI that describes where data goes out to\n")
	fmt.Fprintf(os.Stderr, "           trigCh - a channel number to create trigger window\n")
	fmt.Fprintf(os.Stderr, "         winStart - trigger window start time in ns (WS)\n")
	fmt.Fprintf(os.Stderr, "         winWidth - trigger window width in ns (WW)\n\n")
	fmt.Fprintf(os.Stderr, "       Trigger window is created as (t_ch - WS, t_ch - WS + WW).\n\n")
	pflag.PrintDefaults()
	os.Exit(1)
}

func main() {
	var debugLevel = pflag.CountP("debug", "d", "Increase debug output level")
	var configFile = pflag.StringP("config", "c", "", "Clock/variant configuration YAML file")
	var hitLogFile = pflag.StringP("logfile", "L", "", "Write decoded hits to this CSV file")
	var hitLogDir = pflag.StringP("logdir", "l", "", "Write decoded hits to daily CSV files in this directory")
	var showVersion = pflag.BoolP("version", "v", false, "Print version and exit")

	pflag.Parse()

	if *showVersion {
		mdppst.PrintVersion()
		os.Exit(0)
	}

	mdppst.SetDebugLevel(*debugLevel)

	var args = pflag.Args()
	if len(args) != 5 {
		usage("Wrong number of command line parameters")
	}

	if *hitLogFile != "" && *hitLogDir != "" {
		usage("Use -L or -l but not both")
	}

	var trigCh, trigChErr = strconv.Atoi(args[2])
	if trigChErr != nil {
		usage(fmt.Sprintf("Bad trigger channel %q: %s", args[2], trigChErr))
	}
	var winStartNs, winStartErr = strconv.ParseFloat(args[3], 64)
	if winStartErr != nil {
		usage(fmt.Sprintf("Bad window start %q: %s", args[3], winStartErr))
	}
	var winWidthNs, winWidthErr = strconv.ParseFloat(args[4], 64)
	if winWidthErr != nil {
		usage(fmt.Sprintf("Bad window width %q: %s", args[4], winWidthErr))
	}

	var cfg, cfgErr = mdppst.LoadConfig(*configFile)
	if cfgErr != nil {
		usage(fmt.Sprintf("Bad configuration: %s", cfgErr))
	}
	var variant, variantErr = cfg.BuildVariant()
	if variantErr != nil {
		usage(fmt.Sprintf("Bad configuration: %s", variantErr))
	}

	var clock = mdppst.NewClockReconstructor(variant)
	var trigger, trigErr = mdppst.NewSoftTrigger(variant, clock, trigCh, winStartNs, winWidthNs)
	if trigErr != nil {
		usage(fmt.Sprintf("Bad trigger parameters: %s", trigErr))
	}

	var source, srcErr = mdppst.OpenSource(args[0])
	if srcErr != nil {
		usage(fmt.Sprintf("Failed to open ring source: %s", srcErr))
	}
	fmt.Printf("==  Connecting to the input RingBuffer: %s\n", args[0])

	var sink, sinkErr = mdppst.OpenSink(args[1])
	if sinkErr != nil {
		usage(fmt.Sprintf("Failed to create data sink: %s", sinkErr))
	}
	fmt.Printf("== Connecting to the output RingBuffer: %s\n", args[1])

	var hitLog *mdppst.HitLogger
	if *hitLogFile != "" {
		hitLog = mdppst.NewHitLogger(false, *hitLogFile)
	} else if *hitLogDir != "" {
		hitLog = mdppst.NewHitLogger(true, *hitLogDir)
	}
	defer hitLog.Term()

	fmt.Printf("\n")
	fmt.Printf("==          Protocol variant: %s\n", variant.Name)
	fmt.Printf("==  Software trigger channel: %d\n", trigCh)
	fmt.Printf("== Trigger window start (ns): %g\n", winStartNs)
	fmt.Printf("== Trigger window width (ns): %g\n", winWidthNs)
	fmt.Printf("\n")

	fmt.Printf("== Starting processing software trigger\n")

	var processor = mdppst.NewProcessor(variant, clock, trigger, hitLog)
	var runErr = processor.Run(source, sink)

	if closer, ok := sink.(interface{ Close() error }); ok {
		var closeErr = closer.Close()
		if runErr == nil {
			runErr = closeErr
		}
	}
	if closer, ok := source.(interface{ Close() error }); ok {
		closer.Close()
	}

	if runErr != nil {
		mdppst.Logger().Error("processing failed", "err", runErr)
		os.Exit(1)
	}

	fmt.Printf("== Ending processing software trigger\n")
}
