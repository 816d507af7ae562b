package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Test data generator.
 *
 * Description:	Writes a ring file of synthetic MDPP physics events so the
 *		software trigger can be exercised without a crate: hits on
 *		random channels at increasing times, with the trigger
 *		channel firing at a configurable rate, bracketed by run
 *		state change items.
 *
 *		The output is the raw readout format, i.e. what the VMUSB
 *		front end would have produced.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math/rand"
	"os"

	mdppst "github.com/geniejhang/mdppst/src"
	"github.com/spf13/pflag"
)

func usage(msg string) {
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	fmt.Fprintf(os.Stderr, "= Usage:\n")
	fmt.Fprintf(os.Stderr, "  %s [options] outRingURI\n\n", os.Args[0])
	pflag.PrintDefaults()
	os.Exit(1)
}

func main() {
	var count = pflag.IntP("count", "n", 1000, "Number of physics events to generate")
	var trigCh = pflag.IntP("trigger", "t", 5, "Channel that fires the software trigger")
	var trigEvery = pflag.Int("trigger-every", 20, "Fire the trigger channel every this many hits")
	var meanGapNs = pflag.Float64("gap", 500, "Mean gap between hits in ns")
	var seed = pflag.Int64P("seed", "s", 1, "Random seed")
	var wide = pflag.Bool("wide", false, "Generate the wide (MDPP32SCP) readout instead of the narrow one")

	pflag.Parse()

	if pflag.NArg() != 1 {
		usage("Need exactly one output ring URI")
	}

	var variant = mdppst.NewVariant(mdppst.MDPP16SCP)
	if *wide {
		variant = mdppst.NewVariant(mdppst.MDPP32SCP)
	}

	var sink, err = mdppst.OpenSink(pflag.Arg(0))
	if err != nil {
		usage(fmt.Sprintf("Failed to create data sink: %s", err))
	}

	var rng = rand.New(rand.NewSource(*seed))

	var put = func(item *mdppst.RingItem) {
		var putErr = sink.Put(item)
		if putErr != nil {
			fmt.Fprintf(os.Stderr, "write failed: %s\n", putErr)
			os.Exit(1)
		}
	}

	put(&mdppst.RingItem{Type: mdppst.BEGIN_RUN, Payload: make([]byte, 4)})

	// Start a little into the TDC range so the first hit survives the
	// calibration guard.
	var nowNs = 100.0

	for i := 0; i < *count; i++ {
		nowNs += rng.ExpFloat64() * *meanGapNs

		var channel = rng.Intn(variant.NumChannel)
		if *trigEvery > 0 && i%*trigEvery == *trigEvery-1 {
			channel = *trigCh
		}

		var tdcTicks = uint64(nowNs * 1000. / variant.TDCUnitPs)
		var hit = &mdppst.Hit{
			ModuleID: 3,
			Channel:  channel,
			ADC:      uint32(rng.Intn(0x10000)),
			TDC:      tdcTicks & variant.TDCMax,
		}
		if variant.HasExternalClock {
			hit.ExternalTimestamp = uint64(nowNs/variant.ExternalClockPeriodNs) % mdppst.EXTERNAL_TIMESTAMP_MAX
		}

		put(mdppst.NewPhysicsEvent(variant.PackRaw(hit)))
	}

	put(&mdppst.RingItem{Type: mdppst.END_RUN, Payload: make([]byte, 4)})

	if closer, ok := sink.(interface{ Close() error }); ok {
		var closeErr = closer.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "close failed: %s\n", closeErr)
			os.Exit(1)
		}
	}

	fmt.Printf("wrote %d events to %s\n", *count, pflag.Arg(0))
}
