package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Ring file inspector.
 *
 * Description:	Reads a ring buffer URI, decodes each physics event and
 *		prints its fields in readable form.  Useful for sanity
 *		checking both raw run files and the output of the software
 *		trigger (whose singletons are in the extended format).
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"

	mdppst "github.com/geniejhang/mdppst/src"
	"github.com/spf13/pflag"
)

func usage(msg string) {
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	fmt.Fprintf(os.Stderr, "= Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s [options] inRingURI\n\n", os.Args[0])
	pflag.PrintDefaults()
	os.Exit(1)
}

func main() {
	var configFile = pflag.StringP("config", "c", "", "Clock/variant configuration YAML file")
	var maxEvents = pflag.IntP("max", "m", 0, "Stop after this many physics events (0 = no limit)")

	pflag.Parse()

	if pflag.NArg() != 1 {
		usage("Need exactly one input ring URI")
	}

	var cfg, cfgErr = mdppst.LoadConfig(*configFile)
	if cfgErr != nil {
		usage(fmt.Sprintf("Bad configuration: %s", cfgErr))
	}
	var variant, variantErr = cfg.BuildVariant()
	if variantErr != nil {
		usage(fmt.Sprintf("Bad configuration: %s", variantErr))
	}

	var source, srcErr = mdppst.OpenSource(pflag.Arg(0))
	if srcErr != nil {
		usage(fmt.Sprintf("Failed to open ring source: %s", srcErr))
	}

	var events, bad, other int
	for {
		var item, err = source.NextItem()
		if err != nil {
			fmt.Fprintf(os.Stderr, "read failed: %s\n", err)
			os.Exit(1)
		}
		if item == nil {
			break
		}

		if item.Type != mdppst.PHYSICS_EVENT {
			other++
			continue
		}

		var hit, decodeErr = variant.Unpack(item.Body())
		if decodeErr != nil {
			bad++
			fmt.Printf("event %6d: undecodable: %s\n", events, decodeErr)
			events++
			continue
		}

		fmt.Printf("event %6d: ch=%3d adc=%5d tdc=%d rollover=%d abs=%d pileup=%v overflow=%v ext=%d\n",
			events, hit.Channel, hit.ADC, hit.TDC, hit.RolloverCounter,
			variant.AbsoluteTDC(hit), hit.Pileup, hit.Overflow, hit.ExternalTimestamp)

		events++
		if *maxEvents > 0 && events >= *maxEvents {
			break
		}
	}

	fmt.Printf("%d physics events (%d undecodable), %d other items\n", events, bad, other)
}
