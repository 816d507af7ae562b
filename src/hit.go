package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	One decoded digitizer sample.
 *
 * Description:	A Hit is created by the codec when a PHYSICS_EVENT body
 *		decodes cleanly, gets its RolloverCounter assigned by the
 *		clock reconstructor, sits in the look-back buffer until the
 *		trigger engine decides its fate, and is consumed when the
 *		ring item containing it goes to the sink.
 *
 *		Exactly one owner at a time: the buffer while queued, the
 *		pending window group while collecting, nobody after
 *		emission.
 *
 *------------------------------------------------------------------*/

type Hit struct {
	// VMUSB framing.
	StackID  int
	BodySize int // declared size from the VMUSB header, 16-bit words

	// Module header.
	ModuleID      int // -1 when decode failed
	TDCResolution int // wide readout only

	// Sample.
	ExternalTimestamp uint64 // raw scaler value; narrow readout only
	TrigFlag          bool
	Channel           int
	Pileup            bool
	Overflow          bool
	ADC               uint32
	TDC               uint64 // raw module TDC register

	// Assigned by the clock reconstructor, not on the wire (except in
	// our own extended output format).
	RolloverCounter uint64
}
