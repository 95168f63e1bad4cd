// Package checksum provides pluggable payload checksum capabilities for
// framelog channels. A Summer computes a 32-bit digest over a payload;
// the channel stores it in the frame footer and verifies it on read.
package checksum

import (
	"fmt"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// Summer computes a 32-bit checksum over a payload.
// Implementations must be stateless and safe for concurrent use: the
// producer and consumer sides each call Sum32 from their own goroutine
// or process.
type Summer interface {
	Sum32(p []byte) uint32
}

// Func adapts a plain function to the Summer interface.
type Func func(p []byte) uint32

// Sum32 calls f.
func (f Func) Sum32(p []byte) uint32 { return f(p) }

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32 returns a Summer using the IEEE polynomial. This is the default
// capability for new channels.
func CRC32() Summer {
	return Func(func(p []byte) uint32 { return crc32.ChecksumIEEE(p) })
}

// CRC32C returns a Summer using the Castagnoli polynomial, which is
// hardware-accelerated on amd64 and arm64.
func CRC32C() Summer {
	return Func(func(p []byte) uint32 { return crc32.Checksum(p, castagnoli) })
}

// XXHash returns a Summer truncating xxhash64 to its low 32 bits.
func XXHash() Summer {
	return Func(func(p []byte) uint32 { return uint32(xxhash.Sum64(p)) })
}

// ForName resolves a capability by its configuration name.
// "none" returns nil, which disables integrity checking entirely: the
// channel writes and accepts a fixed magic constant in place of a digest.
func ForName(name string) (Summer, error) {
	switch name {
	case "", "crc32":
		return CRC32(), nil
	case "crc32c":
		return CRC32C(), nil
	case "xxhash":
		return XXHash(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown checksum %q (want crc32, crc32c, xxhash or none)", name)
	}
}
