// Package channel implements the framed append/consume protocol over a
// memory-mapped region shared by exactly one producer and one consumer.
//
// A frame is length(int32) | payload | checksum(uint32), little-endian.
// A zero length followed by the EOF footer is the end-of-stream marker.
// There is no locking anywhere: the reader validates a frame's checksum
// before committing its cursor past it, so a torn in-flight write is
// indistinguishable from "nothing there yet" and is simply retried.
//
// The scheme assumes that stores through one MAP_SHARED view become
// visible to other mappings of the same pages in issue order, which
// holds for same-machine page-cache backed mappings. It does not hold
// for network or otherwise relaxed mappings.
package channel

import "encoding/binary"

const (
	// headerSize is the length field, footerSize the checksum field.
	headerSize = 4
	footerSize = 4

	// Overhead is the per-frame framing cost in bytes.
	Overhead = headerSize + footerSize

	// MinCapacity is the smallest usable region: the capacity must
	// exceed twice the frame overhead, or the region cannot hold even
	// one frame plus an end-of-stream marker.
	MinCapacity = 2*Overhead + 1

	// MaxPayload bounds a frame's payload length. Any stored length at
	// or above it (or negative) is garbage, never a frame.
	MaxPayload = 1 << 30

	// eofFooter is the reserved footer value of the end-of-stream
	// marker, which carries no payload and therefore no checksum.
	eofFooter = 0xEEEEEEEE

	// noSumMagic substitutes for the checksum when no capability is
	// configured. Write and verify then compare a constant, so
	// integrity checking is effectively disabled.
	noSumMagic = 0xAAAAAAAA
)

func putLength(b []byte, n int) { binary.LittleEndian.PutUint32(b, uint32(int32(n))) }

func getLength(b []byte) int { return int(int32(binary.LittleEndian.Uint32(b))) }

func putSum(b []byte, sum uint32) { binary.LittleEndian.PutUint32(b, sum) }

func getSum(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// EstimateFileSize returns the region capacity needed to hold
// numMessages frames of messageSize bytes each, plus the trailing
// end-of-stream marker.
func EstimateFileSize(numMessages, messageSize int) int64 {
	return int64(messageSize+Overhead)*int64(numMessages) + Overhead
}
