package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Absolute timestamp reconstruction.
 *
 * Description:	The digitizer gives us two clocks, both of which roll over:
 *
 *		- the external scaler, 32 bits, sampled into each event
 *		  (narrow readout only);
 *
 *		- the on-module TDC, 30 or 46 bits depending on readout.
 *
 *		This module counts the rollovers of both and stamps every
 *		Hit with the TDC rollover counter, which together with the
 *		raw register gives a monotone 64-bit absolute timestamp.
 *
 *		With both clocks available, a backwards step of the TDC is
 *		resolved against the external clock: the external delta says
 *		how many whole TDC ranges elapsed.  With only the TDC, a
 *		backwards step is a rollover exactly when the register
 *		crossed from the upper half of its range into the lower;
 *		small backwards excursions are detector jitter and are
 *		tolerated without touching the counter.
 *
 *------------------------------------------------------------------*/

import "math"

// Backwards excursions up to this much are classified as jitter rather than
// anomalies in the single-clock reconstruction.
const REVERSED_THRESHOLD_NS = 10.0

// A first-hit TDC below this many units (about 1 ns) cannot serve as the
// calibration reference and the hit is discarded.
const minCalibrationTDC = 41

type ClockReconstructor struct {
	variant *Variant

	timeSet bool

	// External clock domain, nanoseconds.
	timestampNs     float64
	prevTimestampNs float64
	extRollovers    uint64

	// TDC domain.
	mdppTimestampNs     float64
	prevMdppTimestampNs float64
	mdppRollovers       uint64

	// Alignment of the two domains, fixed at the first valid hit.
	refDiffNs float64

	latestAbsoluteTDC   uint64
	latestAbsoluteTDCNs float64
}

func NewClockReconstructor(v *Variant) *ClockReconstructor {
	return &ClockReconstructor{variant: v}
}

func (c *ClockReconstructor) TimeSet() bool {
	return c.timeSet
}

func (c *ClockReconstructor) LatestAbsoluteTDC() uint64 {
	return c.latestAbsoluteTDC
}

// externalNs places the hit's scaler sample on the reconstructed external
// timeline, aligned to the TDC timeline by refDiffNs.
func (c *ClockReconstructor) externalNs(hit *Hit) float64 {
	var ticks = c.extRollovers*EXTERNAL_TIMESTAMP_MAX + hit.ExternalTimestamp
	return float64(ticks)*c.variant.ExternalClockPeriodNs - c.refDiffNs
}

func (c *ClockReconstructor) mdppNs(hit *Hit) float64 {
	return float64(hit.TDC) * c.variant.TDCUnitPs / 1000.
}

/*------------------------------------------------------------------
 *
 * Name:	Calibrate
 *
 * Purpose:	First-hit calibration of the clock alignment.
 *
 * Returns:	false if the hit cannot serve as the reference and must be
 *		discarded.  Calibration stays unset; the next acceptable
 *		hit becomes the reference instead.
 *
 * Description:	The reference fixes refDiffNs so that the external and TDC
 *		timelines coincide at this hit.  A TDC reading of less than
 *		about 1 ns is too close to a fresh rollover to anchor
 *		anything on.
 *
 *------------------------------------------------------------------*/

func (c *ClockReconstructor) Calibrate(hit *Hit) bool {
	if c.timeSet {
		return true
	}

	if hit.TDC < minCalibrationTDC {
		logger.Warn("first hit TDC below 1 ns, discarding it and waiting for a usable reference",
			"channel", hit.Channel, "tdc", hit.TDC)
		return false
	}

	if c.variant.HasExternalClock {
		// refDiffNs is zero at this point, so externalNs is the raw
		// external timeline.
		c.refDiffNs = c.externalNs(hit) - c.mdppNs(hit)
	}

	c.timeSet = true
	logger.Debug("clock calibrated", "channel", hit.Channel, "tdc", hit.TDC, "refDiffNs", c.refDiffNs)
	return true
}

/*------------------------------------------------------------------
 *
 * Name:	Update
 *
 * Purpose:	Advance both clock domains for a new hit and assign its
 *		rollover counter.
 *
 * Description:	External clock: bump the rollover counter until the
 *		timeline is monotone again.
 *
 *		TDC, two-clock readout: when the TDC steps backwards,
 *		estimate the rollover count from the external delta.  If the
 *		local backwards step is already within 20% of the external
 *		delta the step is explained without a rollover and the
 *		counter is left alone.  The 20% band is inherited from the
 *		commissioning of this readout.
 *
 *		TDC, single-clock readout: a genuine wrap crosses from the
 *		upper half of the range into the lower half.  Anything else
 *		going backwards is jitter (within REVERSED_THRESHOLD_NS) or
 *		an anomaly; either way the counter is left alone and the hit
 *		keeps the previous rollover.
 *
 *------------------------------------------------------------------*/

func (c *ClockReconstructor) Update(hit *Hit) {
	var timestampDiffNs float64

	if c.variant.HasExternalClock {
		c.prevTimestampNs = c.timestampNs
		c.timestampNs = c.externalNs(hit)
		timestampDiffNs = c.timestampNs - c.prevTimestampNs
		if !c.timeSet {
			timestampDiffNs = 0
		}

		for timestampDiffNs < 0 {
			c.extRollovers++
			c.timestampNs = c.externalNs(hit)
			timestampDiffNs = c.timestampNs - c.prevTimestampNs
		}
	}

	c.prevMdppTimestampNs = c.mdppTimestampNs
	c.mdppTimestampNs = c.mdppNs(hit)
	var mdppDiffNs = c.mdppTimestampNs - c.prevMdppTimestampNs
	if !c.timeSet {
		mdppDiffNs = 0
	}

	if mdppDiffNs < 0 {
		if c.variant.HasExternalClock {
			var rollovers = uint64(timestampDiffNs / c.variant.TDCMaxNs())
			mdppDiffNs = -mdppDiffNs

			logger.Debug("TDC stepped backwards",
				"externalDiffNs", timestampDiffNs, "tdcDiffNs", mdppDiffNs)

			if !(mdppDiffNs > 0.8*timestampDiffNs && mdppDiffNs < 1.2*timestampDiffNs) {
				c.mdppRollovers += rollovers + 1
			}
		} else {
			var half = c.variant.TDCMaxNs() / 2
			switch {
			case c.prevMdppTimestampNs > half && c.mdppTimestampNs < half:
				c.mdppRollovers++
			case -mdppDiffNs <= REVERSED_THRESHOLD_NS:
				logger.Debug("reversed-order hit within tolerance",
					"channel", hit.Channel, "tdcDiffNs", mdppDiffNs)
			default:
				logger.Warn("TDC stepped backwards without wrapping, keeping previous rollover",
					"channel", hit.Channel, "tdcDiffNs", mdppDiffNs)
			}
		}
	}

	hit.RolloverCounter = c.mdppRollovers

	var abs = c.variant.AbsoluteTDC(hit)
	if abs > c.latestAbsoluteTDC {
		c.latestAbsoluteTDC = abs
	}
	c.latestAbsoluteTDCNs = math.Max(c.latestAbsoluteTDCNs, c.variant.AbsoluteTDCNs(hit))
}
