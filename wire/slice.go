package wire

// Slice names a chain of buffer-pool blocks: offset is a block-pool index
// (block units, not bytes), length is the payload size in bytes. A Slice
// whose length exceeds one block is the head of a scatter chain; see
// streamtable.Pool for how the chain is built and walked.
type Slice struct {
	Offset uint32
	Length uint32
}

// Empty reports whether this Slice carries no payload at all (the
// zero-block case spec.md §8 calls out: alloc(0) must not consume a
// block).
func (s Slice) Empty() bool { return s.Length == 0 }
