package wire

import (
	"math"

	"github.com/objcore/kernel/kerr"
)

// SeekOrigin tags which variant of SeekFrom is in effect.
type SeekOrigin uint8

const (
	SeekStart   SeekOrigin = 0
	SeekCurrent SeekOrigin = 1
	SeekEnd     SeekOrigin = 2
)

// SeekFrom is the tagged sum {Start(u64), Current(i64), End(i64)} from
// spec.md's data model, used both by Object.Seek and the wire request/
// submission encodings.
type SeekFrom struct {
	Origin SeekOrigin
	Offset int64 // interpreted as uint64 when Origin == SeekStart
}

// Apply resolves from against a current position and size, returning the
// new absolute position or InvalidData on overflow (e.g.
// Current(math.MinInt64)), exactly the boundary case spec.md §8 calls out.
func Apply(from SeekFrom, current, size uint64) (uint64, error) {
	switch from.Origin {
	case SeekStart:
		return uint64(from.Offset), nil
	case SeekCurrent:
		return addSigned(current, from.Offset)
	case SeekEnd:
		return addSigned(size, from.Offset)
	default:
		return 0, kerr.New("seek", kerr.InvalidData)
	}
}

func addSigned(base uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		if uint64(delta) > math.MaxUint64-base {
			return 0, kerr.New("seek", kerr.InvalidData)
		}
		return base + uint64(delta), nil
	}
	neg := uint64(-(delta + 1)) + 1 // avoids overflow on delta == MinInt64
	if neg > base {
		return 0, kerr.New("seek", kerr.InvalidData)
	}
	return base - neg, nil
}
