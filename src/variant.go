package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Protocol variant table.
 *
 * Description:	The VMUSB stacks in the field read the digitizer out in two
 *		shapes:
 *
 *		MDPP16SCP - the "narrow" readout.  Each event carries a
 *			32-bit external scaler sample, a skipped second
 *			scaler, and a 30-bit on-module TDC.  Two independent
 *			clocks.
 *
 *		MDPP32SCP - the "wide" readout.  No external scaler; the
 *			module emits a 46-bit TDC split over two words plus a
 *			resolution code.  Single clock.
 *
 *		Clock constants vary between setups (10 MHz vs 16 MHz
 *		scaler, TDC resolution setting), so they can be overridden
 *		from a small YAML file found at run time.
 *
 *------------------------------------------------------------------*/

type VariantID int

const (
	MDPP16SCP VariantID = iota
	MDPP32SCP
)

// External scaler register width, both setups.
const EXTERNAL_TIMESTAMP_MAX = uint64(1) << 32

type Variant struct {
	ID   VariantID
	Name string

	// External clock, when the readout has one.
	HasExternalClock      bool
	ExternalClockPeriodNs float64

	// On-module TDC.
	TDCUnitPs float64
	TDCWidth  uint
	TDCMax    uint64

	NumChannel int
}

func (v *Variant) TDCMaxNs() float64 {
	return float64(v.TDCMax) * v.TDCUnitPs / 1000.
}

// AbsoluteTDC is the reconstructed monotone timestamp in TDC units:
// rollover counter shifted above the raw register.
func (v *Variant) AbsoluteTDC(hit *Hit) uint64 {
	return (hit.RolloverCounter << v.TDCWidth) | hit.TDC
}

func (v *Variant) AbsoluteTDCNs(hit *Hit) float64 {
	return float64(v.AbsoluteTDC(hit)) * v.TDCUnitPs / 1000.
}

func NewVariant(id VariantID) *Variant {
	switch id {
	case MDPP32SCP:
		return &Variant{
			ID:               MDPP32SCP,
			Name:             "mdpp32scp",
			HasExternalClock: false,
			TDCUnitPs:        781.25,
			TDCWidth:         46,
			TDCMax:           0x3FFFFFFFFFFF,
			NumChannel:       128,
		}
	default:
		return &Variant{
			ID:                    MDPP16SCP,
			Name:                  "mdpp16scp",
			HasExternalClock:      true,
			ExternalClockPeriodNs: 100.0, // 10 MHz scaler.  62.5 for 16 MHz.
			TDCUnitPs:             24.41,
			TDCWidth:              30,
			TDCMax:                0x3FFFFFFF,
			NumChannel:            32,
		}
	}
}
