package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Software trigger window engine.
 *
 * Description:	Watches the stream of time-reconstructed hits for the
 *		trigger channel.  A trigger hit at absolute TDC T opens the
 *		window
 *
 *			[max(T - windowStart, 0), max(T - windowStart, 0) + windowWidth]
 *
 *		closed at both ends.  Everything in the window - including
 *		hits that arrived before the trigger - is fused into one
 *		composite physics event.  Hits that can no longer fall into
 *		any window are re-emitted individually.
 *
 *		A second trigger-channel hit arriving while a window is
 *		open is an ordinary in-window candidate; a new window can
 *		only open after the current one closes.  The close path
 *		re-examines the front of the buffer so back-to-back windows
 *		still open promptly.
 *
 *------------------------------------------------------------------*/

import "fmt"

type SoftTrigger struct {
	variant *Variant
	clock   *ClockReconstructor

	// Fixed at construction.
	triggerChannel int
	windowStartNs  float64
	windowWidthNs  float64
	windowStart    uint64 // in TDC units
	windowWidth    uint64 // in TDC units

	collecting           bool
	windowStartTimestamp uint64
	windowEndTimestamp   uint64

	hits    hitDeque // look-back buffer, arrival order
	pending hitDeque // current window's collection, emission order
}

func NewSoftTrigger(v *Variant, clock *ClockReconstructor, triggerChannel int, windowStartNs float64, windowWidthNs float64) (*SoftTrigger, error) {
	if triggerChannel < 0 || triggerChannel >= v.NumChannel {
		return nil, fmt.Errorf("trigger channel %d out of range [0, %d)", triggerChannel, v.NumChannel)
	}
	if windowStartNs < 0 {
		return nil, fmt.Errorf("window start must be non-negative, not %g ns", windowStartNs)
	}
	if windowWidthNs < 0 {
		return nil, fmt.Errorf("window width must be non-negative, not %g ns", windowWidthNs)
	}

	return &SoftTrigger{
		variant:        v,
		clock:          clock,
		triggerChannel: triggerChannel,
		windowStartNs:  windowStartNs,
		windowWidthNs:  windowWidthNs,
		windowStart:    uint64(windowStartNs * 1000. / v.TDCUnitPs),
		windowWidth:    uint64(windowWidthNs * 1000. / v.TDCUnitPs),
	}, nil
}

func (st *SoftTrigger) IsTriggerChannel(hit *Hit) bool {
	return hit.Channel == st.triggerChannel
}

// Push hands a time-reconstructed hit to the engine.  Call Step afterwards.
func (st *SoftTrigger) Push(hit *Hit) {
	st.hits.pushBack(hit)
}

func (st *SoftTrigger) emitSingleton(sink DataSink, hit *Hit) error {
	return sink.Put(NewPhysicsEvent(st.variant.Pack(hit)))
}

func (st *SoftTrigger) collect(hit *Hit) {
	st.pending.pushBack(hit)
	st.collecting = true
}

func (st *SoftTrigger) sendCollection(sink DataSink) error {
	var hits = st.pending.drain()
	var err = sink.Put(NewPhysicsEvent(st.variant.PackGroup(hits, st.windowStartTimestamp)))
	st.collecting = false
	return err
}

/*------------------------------------------------------------------
 *
 * Name:	updateTriggerWindow
 *
 * Purpose:	Derive the window interval from a trigger hit, clamping the
 *		start at zero when the trigger fired earlier than
 *		windowStart into the run.
 *
 *------------------------------------------------------------------*/

func (st *SoftTrigger) updateTriggerWindow(trigger *Hit) {
	var abs = st.variant.AbsoluteTDC(trigger)

	if abs < st.windowStart {
		st.windowStartTimestamp = 0
	} else {
		st.windowStartTimestamp = abs - st.windowStart
	}
	st.windowEndTimestamp = st.windowStartTimestamp + st.windowWidth

	logger.Debug("new trigger window",
		"buffered", st.hits.size(),
		"windowStart", st.windowStartTimestamp,
		"windowEnd", st.windowEndTimestamp,
		"triggerTDC", abs)
}

func (st *SoftTrigger) inWindow(abs uint64) bool {
	return abs >= st.windowStartTimestamp && abs <= st.windowEndTimestamp
}

/*------------------------------------------------------------------
 *
 * Name:	Step
 *
 * Purpose:	Advance the window state machine after one hit was pushed.
 *
 * Inputs:	sink		 - where finished events go.
 *		isTriggerChannel - whether the just-pushed hit is on the
 *				   trigger channel.
 *
 * Description:	Three cases:
 *
 *		1. Trigger and not collecting: open a window around the
 *		   just-pushed hit.  Older buffered hits either join the
 *		   window or, if they predate it, leave as singletons.
 *
 *		2. Collecting: the front of the buffer either joins the
 *		   window, or proves the window closed (we have already
 *		   seen a hit past its end), or we wait for more future.
 *		   On close the collection is emitted and the front hit is
 *		   re-examined as a potential new trigger - as a loop, so a
 *		   dense trigger stream cannot grow the stack.
 *
 *		3. Neither: age out hits that are too old to make it into
 *		   any window a future trigger could open.
 *
 *------------------------------------------------------------------*/

func (st *SoftTrigger) Step(sink DataSink, isTriggerChannel bool) error {
	for {
		if isTriggerChannel && !st.collecting {
			var trigger = st.hits.popBack()
			if trigger == nil {
				// Can't happen: Step runs right after Push.
				return nil
			}

			st.updateTriggerWindow(trigger)

			for !st.hits.empty() {
				var hit = st.hits.popFront()
				var abs = st.variant.AbsoluteTDC(hit)

				if st.inWindow(abs) {
					logger.Debug("collected before trigger",
						"fromWindowStart", abs-st.windowStartTimestamp, "channel", hit.Channel)
					st.collect(hit)
				} else if abs < st.windowStartTimestamp {
					logger.Debug("flushing pre-window hit",
						"tdc", abs, "windowStart", st.windowStartTimestamp)
					var err = st.emitSingleton(sink, hit)
					if err != nil {
						return err
					}
				} else {
					// Older than the trigger yet past the window end;
					// monotonicity forbids this.  The hit is dropped.
					logger.Error("this shouldn't be happening: buffered hit past window end",
						"tdc", abs,
						"windowEnd", st.windowEndTimestamp,
						"rollover", hit.RolloverCounter,
						"rawTDC", hit.TDC)
					break
				}
			}

			st.collect(trigger)
			return nil
		}

		if st.collecting {
			var hit = st.hits.peekFront()
			if hit == nil {
				// Nothing to examine until the next push.
				return nil
			}
			var abs = st.variant.AbsoluteTDC(hit)

			if st.inWindow(abs) {
				st.hits.popFront()
				logger.Debug("collected after trigger",
					"fromWindowStart", abs-st.windowStartTimestamp, "channel", hit.Channel)
				st.collect(hit)
				return nil
			}

			if st.windowEndTimestamp < st.clock.LatestAbsoluteTDC() {
				// A hit beyond the window end exists, so the window
				// is closed.  Emit and re-examine the front hit.
				var err = st.sendCollection(sink)
				if err != nil {
					return err
				}
				isTriggerChannel = st.IsTriggerChannel(hit)
				continue
			}

			// Front hit is outside the window yet nothing past the end
			// has been seen; monotonicity forbids this.
			logger.Error("this shouldn't be happening: front hit outside open window",
				"tdc", abs,
				"windowStart", st.windowStartTimestamp,
				"windowEnd", st.windowEndTimestamp,
				"rollover", hit.RolloverCounter,
				"rawTDC", hit.TDC)
			return nil
		}

		// Not collecting, not a trigger: age out hits that no future
		// window can reach back to.
		for !st.hits.empty() {
			var hit = st.hits.peekFront()
			var abs = st.variant.AbsoluteTDC(hit)

			if st.clock.LatestAbsoluteTDC()-abs > st.windowStart {
				st.hits.popFront()
				logger.Debug("too far from any future window start",
					"tdc", abs, "latest", st.clock.LatestAbsoluteTDC())
				var err = st.emitSingleton(sink, hit)
				if err != nil {
					return err
				}
			} else {
				break
			}
		}
		return nil
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Emptying
 *
 * Purpose:	End-of-run flush: the pending window group first, then the
 *		look-back buffer as singletons, in order.
 *
 *------------------------------------------------------------------*/

func (st *SoftTrigger) Emptying(sink DataSink) error {
	logger.Debug("emptying for run end", "pending", st.pending.size(), "buffered", st.hits.size())

	if !st.pending.empty() {
		var err = st.sendCollection(sink)
		if err != nil {
			return err
		}
	}

	for !st.hits.empty() {
		var hit = st.hits.popFront()
		var err = st.emitSingleton(sink, hit)
		if err != nil {
			return err
		}
	}

	return nil
}
