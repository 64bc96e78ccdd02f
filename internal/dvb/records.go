package dvb

import (
	"unsafe"

	"github.com/godtm/godtm/internal/channel"
)

// Property and value constants from linux/dvb/frontend.h and
// linux/dvb/dmx.h. Only the subset a EuroDOCSIS downstream tune needs.
const (
	dtvTune           = 1
	dtvFrequency      = 3
	dtvModulation     = 4
	dtvInversion      = 6
	dtvSymbolRate     = 8
	dtvInnerFEC       = 9
	dtvDeliverySystem = 17

	qam64  = 3
	qam256 = 5

	inversionOff   = 0
	fecAuto        = 9
	sysDVBCAnnexAC = 1

	feHasLock = 0x10

	dmxInFrontend     = 0
	dmxOutTSTap       = 2
	dmxPesOther       = 20
	dmxImmediateStart = 4
)

// pointerSize decides the union tail of dtvProperty and the encoded length
// of the FE_SET_PROPERTY request.
const pointerSize = unsafe.Sizeof(uintptr(0))

// dtvProperty mirrors struct dtv_property from linux/dvb/frontend.h. The
// kernel declares it packed; every field here is naturally aligned, so the
// Go layout matches byte for byte: cmd at 0, reserved at 4, the union at 16
// (we only ever use its leading u32), result at 72 on 64-bit builds (68 on
// 32-bit). The blank tail covers the unused buffer arm of the union.
type dtvProperty struct {
	Cmd      uint32
	Reserved [3]uint32
	Data     uint32
	_        [44 + pointerSize]byte
	Result   int32
}

// dtvProperties is the FE_SET_PROPERTY argument: a counted pointer to a
// property array. Not packed; Go inserts the same pre-pointer padding the
// compiler does for the C struct.
type dtvProperties struct {
	Num   uint32
	Props *dtvProperty
}

// dmxPesFilterParams mirrors struct dmx_pes_filter_params from
// linux/dvb/dmx.h: pid at 0, input at 4, output at 8, pes_type at 12,
// flags at 16, 20 bytes total on every architecture.
type dmxPesFilterParams struct {
	PID     uint16
	Input   uint32
	Output  uint32
	PesType uint32
	Flags   uint32
}

// Linux ioctl request encoding: dir<<30 | size<<16 | type<<8 | nr.
// The DVB API uses request type 'o'.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<iocDirShift | 'o'<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

// Request codes for the frontend and demux handles. FE_SET_PROPERTY embeds
// the native size of dtvProperties, so its value differs between 32- and
// 64-bit builds; the others are identical everywhere.
var (
	feSetProperty    = ioc(iocWrite, 82, unsafe.Sizeof(dtvProperties{}))
	feReadStatus     = ioc(iocRead, 69, unsafe.Sizeof(uint32(0)))
	dmxSetPesFilter  = ioc(iocWrite, 44, unsafe.Sizeof(dmxPesFilterParams{}))
	dmxSetBufferSize = ioc(iocNone, 45, 0)
	dmxStop          = ioc(iocNone, 42, 0)
)

// qamConstant maps a channel modulation to its frontend.h value.
func qamConstant(m channel.Modulation) uint32 {
	if m == channel.QAM64 {
		return qam64
	}
	return qam256
}

// tuneSequence builds the property batch that programs the frontend for one
// EuroDOCSIS downstream channel. The order is fixed: delivery system,
// modulation, the mandated symbol rate, inversion off, FEC autodetect, the
// frequency in Hz, and the tune commit last.
func tuneSequence(t channel.Tunable) [7]dtvProperty {
	return [7]dtvProperty{
		{Cmd: dtvDeliverySystem, Data: sysDVBCAnnexAC},
		{Cmd: dtvModulation, Data: qamConstant(t.Modulation)},
		{Cmd: dtvSymbolRate, Data: EuroDocsisSymbolRate},
		{Cmd: dtvInversion, Data: inversionOff},
		{Cmd: dtvInnerFEC, Data: fecAuto},
		{Cmd: dtvFrequency, Data: uint32(t.Frequency) * 1000000},
		{Cmd: dtvTune},
	}
}

// docsisFilter builds the fixed demux filter record: the DOCSIS PID, taken
// from the frontend, to the full transport stream tap, started immediately.
func docsisFilter() dmxPesFilterParams {
	return dmxPesFilterParams{
		PID:     DocsisPID,
		Input:   dmxInFrontend,
		Output:  dmxOutTSTap,
		PesType: dmxPesOther,
		Flags:   dmxImmediateStart,
	}
}
