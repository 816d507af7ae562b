package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Pipeline driver.
 *
 * Description:	Pulls ring items off the source one at a time and pushes the
 *		results to the sink, synchronously:
 *
 *		PHYSICS_EVENT       - decode, reconstruct time, hand to the
 *				      trigger engine.  Undecodable events
 *				      are dropped with a warning.
 *		END_RUN,
 *		ABNORMAL_ENDRUN     - flush everything, forward the item.
 *		PHYSICS_EVENT_COUNT - discarded; the counts are stale once
 *				      hits have been regrouped.
 *		anything else       - forwarded verbatim.
 *
 *		Strictly single threaded.  A file source ends the loop at
 *		EOF; an online source just blocks, so the loop never ends.
 *
 *------------------------------------------------------------------*/

type Processor struct {
	variant *Variant
	clock   *ClockReconstructor
	trigger *SoftTrigger
	hitLog  *HitLogger

	// Counters reported at end of run.
	itemsIn      uint64
	hitsDecoded  uint64
	hitsDropped  uint64
	countsEaten  uint64
	itemsForward uint64
}

func NewProcessor(v *Variant, clock *ClockReconstructor, trigger *SoftTrigger, hitLog *HitLogger) *Processor {
	return &Processor{
		variant: v,
		clock:   clock,
		trigger: trigger,
		hitLog:  hitLog,
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Run
 *
 * Purpose:	Process the stream until the source is exhausted.
 *
 * Returns:	nil on clean end of stream.  Source and sink errors come
 *		back as-is; nothing at this level is retried.
 *
 *------------------------------------------------------------------*/

func (p *Processor) Run(source DataSource, sink DataSink) error {
	for {
		var item, err = source.NextItem()
		if err != nil {
			return err
		}
		if item == nil {
			// A file source at EOF or a tcp source whose peer
			// closed; a quiet online ring blocks instead.
			logger.Info("source exhausted",
				"items", p.itemsIn, "hits", p.hitsDecoded, "dropped", p.hitsDropped)
			return nil
		}
		p.itemsIn++

		switch item.Type {
		case PHYSICS_EVENT:
			err = p.physicsEvent(item, sink)
		case END_RUN, ABNORMAL_ENDRUN:
			logger.Info("run ended, flushing", "type", itemTypeName(item.Type))
			err = p.trigger.Emptying(sink)
			if err == nil {
				err = sink.Put(item)
			}
		case PHYSICS_EVENT_COUNT:
			// Regrouping invalidates the count, so eat it.
			p.countsEaten++
			logger.Debug("discarding PHYSICS_EVENT_COUNT item")
		default:
			p.itemsForward++
			err = sink.Put(item)
		}

		if err != nil {
			return err
		}
	}
}

func (p *Processor) physicsEvent(item *RingItem, sink DataSink) error {
	var hit, err = p.variant.Unpack(item.Body())
	if err != nil {
		p.hitsDropped++
		logger.Warn("dropping undecodable physics event", "err", err)
		return nil
	}

	if !p.clock.TimeSet() && !p.clock.Calibrate(hit) {
		// Unusable first hit; discarded, stream continues.
		p.hitsDropped++
		return nil
	}

	p.clock.Update(hit)
	p.hitsDecoded++

	p.hitLog.Write(p.variant, hit)

	p.trigger.Push(hit)
	return p.trigger.Step(sink, p.trigger.IsTriggerChannel(hit))
}
