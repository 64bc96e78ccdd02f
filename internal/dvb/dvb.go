// Package dvb drives a Linux DVB-C tuner through the kernel's frontend,
// demux and dvr device nodes. It owns every fixed-layout kernel record and
// ioctl request code; nothing outside this package touches the raw ABI.
//
// The exposed surface is small: open a Device, tune it to a channel, start
// and stop the DOCSIS packet filter, and drain the transport stream through
// the DVR handle with a readiness Poller.
package dvb

// DocsisPID is the fixed MPEG-TS packet identifier carrying DOCSIS payload
// on EuroDOCSIS downstream channels.
const DocsisPID = 8190

// EuroDocsisSymbolRate is the downstream symbol rate in symbols/s mandated
// by EuroDOCSIS for every channel; it is never configurable.
const EuroDocsisSymbolRate = 6952000

// TSPacketLength is the per-packet read granularity. MPEG-TS packets are
// 188 bytes; one spare byte per packet keeps the reads generously sized.
const TSPacketLength = 189

// BufferSize is both the demux ring buffer size and the meter's read
// buffer size: room for 2048 transport stream packets.
const BufferSize = 2048 * TSPacketLength
