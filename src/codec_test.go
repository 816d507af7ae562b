package mdppst

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func appendU32(b []byte, words ...uint32) []byte {
	for _, w := range words {
		b = binary.LittleEndian.AppendUint32(b, w)
	}
	return b
}

func rawNarrowBody(stackID int, ext uint32, data uint32, timestamp uint32) []byte {
	var body = binary.LittleEndian.AppendUint16(nil, uint16(stackID<<13)|0x0c)
	return appendU32(body, ext, 0xdeadbeef /* second scaler */, data, timestamp)
}

func TestUnpackNarrow(t *testing.T) {
	var v = NewVariant(MDPP16SCP)

	// module 5, trigger flag, channel 7, pileup, adc 0x1234, tdc 100000
	var data = uint32(0x1)<<30 | 5<<24 | 1<<23 | 7<<18 | 1<<17 | 0x1234
	var timestamp = uint32(0x3)<<30 | 100000
	var body = rawNarrowBody(2, 0x11223344, data, timestamp)

	var hit, err = v.Unpack(body)
	require.NoError(t, err)

	assert.Equal(t, 2, hit.StackID)
	assert.Equal(t, 0x0c, hit.BodySize)
	assert.Equal(t, uint64(0x11223344), hit.ExternalTimestamp)
	assert.Equal(t, 5, hit.ModuleID)
	assert.True(t, hit.TrigFlag)
	assert.Equal(t, 7, hit.Channel)
	assert.True(t, hit.Pileup)
	assert.False(t, hit.Overflow)
	assert.Equal(t, uint32(0x1234), hit.ADC)
	assert.Equal(t, uint64(100000), hit.TDC)
	assert.Equal(t, uint64(0), hit.RolloverCounter)
}

func TestUnpackNarrowRejectsBadTags(t *testing.T) {
	var v = NewVariant(MDPP16SCP)

	var goodData = uint32(0x1)<<30 | 3<<24 | 4<<18 | 55
	var goodTimestamp = uint32(0x3) << 30

	// Data word with tag 00 instead of 01.
	var _, err = v.Unpack(rawNarrowBody(0, 0, goodData&^(uint32(0x3)<<30), goodTimestamp))
	assert.ErrorIs(t, err, ErrBadDataHeader)

	// Timestamp word with tag 10 instead of 11.
	_, err = v.Unpack(rawNarrowBody(0, 0, goodData, uint32(0x2)<<30))
	assert.ErrorIs(t, err, ErrBadTimestamp)

	// Truncated body.
	_, err = v.Unpack(rawNarrowBody(0, 0, goodData, goodTimestamp)[:10])
	assert.ErrorIs(t, err, ErrShortEventBody)
}

func TestPackUnpackSingletonNarrow(t *testing.T) {
	var v = NewVariant(MDPP16SCP)

	var hit = &Hit{
		StackID:           1,
		ModuleID:          9,
		TrigFlag:          true,
		Channel:           13,
		Pileup:            false,
		Overflow:          true,
		ADC:               0xBEEF,
		TDC:               123456789,
		ExternalTimestamp: 0xCAFEBABE,
		RolloverCounter:   42,
	}

	var body = v.Pack(hit)
	var got, err = v.Unpack(body)
	require.NoError(t, err)

	assert.Equal(t, hit.StackID, got.StackID)
	assert.Equal(t, rawBodySize+4, got.BodySize)
	assert.Equal(t, hit.ExternalTimestamp, got.ExternalTimestamp)
	assert.Equal(t, hit.ModuleID, got.ModuleID)
	assert.Equal(t, hit.TrigFlag, got.TrigFlag)
	assert.Equal(t, hit.Channel, got.Channel)
	assert.Equal(t, hit.Pileup, got.Pileup)
	assert.Equal(t, hit.Overflow, got.Overflow)
	assert.Equal(t, hit.ADC, got.ADC)
	assert.Equal(t, hit.TDC, got.TDC)
	assert.Equal(t, hit.RolloverCounter, got.RolloverCounter)

	// Two enders on the tail.
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(body[len(body)-4:]))
	assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(body[len(body)-8:len(body)-4]))
}

func TestPackGroupNarrowLayout(t *testing.T) {
	var v = NewVariant(MDPP16SCP)

	var windowStart = uint64(40000)
	var hits = []*Hit{
		{StackID: 1, ModuleID: 3, Channel: 2, ADC: 11, TDC: 41000},
		{StackID: 1, ModuleID: 3, Channel: 5, ADC: 22, TDC: 50000, TrigFlag: true},
		{StackID: 1, ModuleID: 3, Channel: 9, ADC: 33, TDC: 60000, RolloverCounter: 1},
	}

	var body = v.PackGroup(hits, windowStart)

	var stackID, wire = parseNarrowBody(t, body)
	assert.Equal(t, 1, stackID)
	require.Len(t, wire, 3)

	var vmusb = binary.LittleEndian.Uint16(body[0:2])
	assert.Equal(t, rawBodySize*3+4, int(vmusb&0x0FFF))

	for i, w := range wire {
		assert.Equal(t, hits[i].Channel, w.channel)
		assert.Equal(t, uint32(hits[i].ADC), w.adc)
		assert.Equal(t, hits[i].TDC, w.tdc)
		assert.Equal(t, hits[i].RolloverCounter, w.rollover)
		// The external timestamp slot carries time-from-window-start.
		var want = (v.AbsoluteTDC(hits[i]) - windowStart) & 0xFFFFFFFF
		assert.Equal(t, uint32(want), w.firstWord)
	}
}

func TestUnpackWide(t *testing.T) {
	var v = NewVariant(MDPP32SCP)

	var tdc = uint64(0x2BCDEF012345) // needs more than 30 bits, fits in 46
	var body = binary.LittleEndian.AppendUint16(nil, uint16(4<<13)|0x0c)
	body = appendU32(body,
		uint32(0x1)<<30|77<<16|5<<13|4, // module header: id 77, resolution 5
		uint32(0x1)<<28|1<<24|90<<16|0x4321, // ADC word: pileup, channel 90
		timestampHighWord(tdc),
		timestampLowWord(tdc),
	)

	var hit, err = v.Unpack(body)
	require.NoError(t, err)

	assert.Equal(t, 4, hit.StackID)
	assert.Equal(t, 77, hit.ModuleID)
	assert.Equal(t, 5, hit.TDCResolution)
	assert.True(t, hit.Pileup)
	assert.False(t, hit.Overflow)
	assert.Equal(t, 90, hit.Channel)
	assert.Equal(t, uint32(0x4321), hit.ADC)
	assert.Equal(t, tdc, hit.TDC)
}

func TestUnpackWideRejectsBadPrefixes(t *testing.T) {
	var v = NewVariant(MDPP32SCP)

	var build = func(header, adc, high, low uint32) []byte {
		var body = binary.LittleEndian.AppendUint16(nil, 0x0c)
		return appendU32(body, header, adc, high, low)
	}

	var header = uint32(0x1)<<30 | 7<<16
	var adc = uint32(0x1)<<28 | 3<<16 | 99
	var high = timestampHighWord(1 << 35)
	var low = timestampLowWord(1 << 35)

	var _, err = v.Unpack(build(header&^(uint32(0x3)<<30), adc, high, low))
	assert.ErrorIs(t, err, ErrBadDataHeader)

	_, err = v.Unpack(build(header, uint32(0x7)<<28|99, high, low))
	assert.ErrorIs(t, err, ErrBadADCWord)

	_, err = v.Unpack(build(header, adc, uint32(0x3)<<28, low))
	assert.ErrorIs(t, err, ErrBadTimestampHigh)

	_, err = v.Unpack(build(header, adc, high, uint32(0x1)<<30))
	assert.ErrorIs(t, err, ErrBadTimestamp)
}

func TestPackUnpackSingletonWide(t *testing.T) {
	var v = NewVariant(MDPP32SCP)

	var hit = &Hit{
		StackID:         3,
		ModuleID:        200,
		TDCResolution:   2,
		Channel:         101,
		Overflow:        true,
		ADC:             0x0FED,
		TDC:             (uint64(1) << 45) | 9999,
		RolloverCounter: 7,
	}

	var body = v.Pack(hit)
	var got, err = v.Unpack(body)
	require.NoError(t, err)

	assert.Equal(t, hit.StackID, got.StackID)
	assert.Equal(t, hit.ModuleID, got.ModuleID)
	assert.Equal(t, hit.TDCResolution, got.TDCResolution)
	assert.Equal(t, hit.Channel, got.Channel)
	assert.Equal(t, hit.Pileup, got.Pileup)
	assert.Equal(t, hit.Overflow, got.Overflow)
	assert.Equal(t, hit.ADC, got.ADC)
	assert.Equal(t, hit.TDC, got.TDC)
	assert.Equal(t, hit.RolloverCounter, got.RolloverCounter)
}

func TestRawRoundTripProperty(t *testing.T) {
	var narrow = NewVariant(MDPP16SCP)
	var wide = NewVariant(MDPP32SCP)

	rapid.Check(t, func(t *rapid.T) {
		var useWide = rapid.Bool().Draw(t, "wide")

		var v = narrow
		var hit = &Hit{
			StackID:  rapid.IntRange(0, 7).Draw(t, "stack"),
			TrigFlag: rapid.Bool().Draw(t, "trig"),
			Pileup:   rapid.Bool().Draw(t, "pileup"),
			Overflow: rapid.Bool().Draw(t, "overflow"),
			ADC:      uint32(rapid.IntRange(0, 0xFFFF).Draw(t, "adc")),
		}

		if useWide {
			v = wide
			hit.ModuleID = rapid.IntRange(0, 0xFF).Draw(t, "module")
			hit.TDCResolution = rapid.IntRange(0, 7).Draw(t, "resolution")
			hit.Channel = rapid.IntRange(0, 127).Draw(t, "channel")
			hit.TDC = rapid.Uint64Range(0, wide.TDCMax).Draw(t, "tdc")
			hit.TrigFlag = false // not on the wide wire
		} else {
			hit.ModuleID = rapid.IntRange(0, 0x3F).Draw(t, "module")
			hit.Channel = rapid.IntRange(0, 31).Draw(t, "channel")
			hit.TDC = rapid.Uint64Range(0, narrow.TDCMax).Draw(t, "tdc")
			hit.ExternalTimestamp = uint64(rapid.Uint32().Draw(t, "ext"))
		}

		var got, err = v.Unpack(v.PackRaw(hit))
		require.NoError(t, err)

		assert.Equal(t, hit.StackID, got.StackID)
		assert.Equal(t, hit.ModuleID, got.ModuleID)
		assert.Equal(t, hit.Channel, got.Channel)
		assert.Equal(t, hit.TrigFlag, got.TrigFlag)
		assert.Equal(t, hit.Pileup, got.Pileup)
		assert.Equal(t, hit.Overflow, got.Overflow)
		assert.Equal(t, hit.ADC, got.ADC)
		assert.Equal(t, hit.TDC, got.TDC)
		assert.Equal(t, hit.ExternalTimestamp, got.ExternalTimestamp)
	})
}
