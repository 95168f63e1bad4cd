package channel

import "github.com/bft-labs/framelog/internal/region"

// FrameState classifies what Inspect found at an offset.
type FrameState int

const (
	// FrameValid is a whole frame with a matching checksum.
	FrameValid FrameState = iota

	// FrameBadSum is a length-plausible frame whose checksum does not
	// verify: either an in-flight write or real corruption. Poll cannot
	// tell these apart; Inspect reports them so an operator can.
	FrameBadSum

	// FrameEndOfStream is the end-of-stream marker.
	FrameEndOfStream

	// FrameGarbage is an offset holding neither a frame nor a marker.
	FrameGarbage
)

func (s FrameState) String() string {
	switch s {
	case FrameValid:
		return "valid"
	case FrameBadSum:
		return "bad-checksum"
	case FrameEndOfStream:
		return "end-of-stream"
	default:
		return "garbage"
	}
}

// FrameInfo describes one frame position for diagnostics.
type FrameInfo struct {
	Offset int
	Length int
	Stored uint32
	Want   uint32
	State  FrameState
}

// Inspect walks the region from offset 0 and reports every frame
// position up to the first non-valid one, which is included. It never
// mutates anything and holds no cursor; it is a diagnostic, not a
// consumer, and must not run concurrently with a live writer.
func Inspect(reg *region.Region, opts ...Option) []FrameInfo {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	data := reg.Bytes()
	var infos []FrameInfo
	pos := 0
	for pos+Overhead <= len(data) {
		length := getLength(data[pos:])
		if length == 0 {
			if getSum(data[pos+headerSize:]) == eofFooter {
				infos = append(infos, FrameInfo{Offset: pos, State: FrameEndOfStream})
			} else {
				infos = append(infos, FrameInfo{Offset: pos, State: FrameGarbage})
			}
			return infos
		}
		if length < 0 || length >= MaxPayload || pos+headerSize+length+footerSize > len(data) {
			infos = append(infos, FrameInfo{Offset: pos, Length: length, State: FrameGarbage})
			return infos
		}

		payload := data[pos+headerSize : pos+headerSize+length]
		info := FrameInfo{
			Offset: pos,
			Length: length,
			Stored: getSum(data[pos+headerSize+length:]),
			Want:   o.sumOf(payload),
		}
		if info.Stored != info.Want {
			info.State = FrameBadSum
			return append(infos, info)
		}
		infos = append(infos, info)
		pos += headerSize + length + footerSize
	}
	return infos
}
