// Package streamtable implements the Stream Table: the shared-memory ring
// IPC primitive a process uses to publish an Object family to clients
// without the kernel sitting on the data path for every request.
package streamtable

import (
	"encoding/binary"

	"github.com/objcore/kernel/kerr"
	"github.com/objcore/kernel/ring"
	"github.com/objcore/kernel/wire"
)

// Pool is the buffer pool allocator backing a Stream Table: a flat array
// of equally sized blocks whose free list is a lock-free stack threaded
// through the blocks' own trailing bytes. Multi-block payloads scatter
// across a chain of data blocks referenced by one or more header blocks,
// per the pool algorithm.
//
// A data block in an allocated chain carries its full block size of
// payload; only a header block's last 4-byte slot is ever reserved, as the
// pointer to the next header once the current one's slots are full.
type Pool struct {
	data      []byte
	blockSize uint32
	numBlocks uint32
	free      *ring.FreeStack
}

// NewPool builds a Pool over data (the buffer_mem backing, already
// block-aligned) using freeHead as the shared free-list head word. The
// pool starts with no blocks on the free list; call Seed once, when the
// table is first created, to populate it.
func NewPool(data []byte, blockSizeLog2 uint, freeHead ring.Cursor) (*Pool, error) {
	if blockSizeLog2 < 2 {
		return nil, kerr.New("streamtable.new_pool", kerr.InvalidData)
	}
	blockSize := uint32(1) << blockSizeLog2
	if len(data) == 0 || uint32(len(data))%blockSize != 0 {
		return nil, kerr.New("streamtable.new_pool", kerr.InvalidData)
	}
	p := &Pool{
		data:      data,
		blockSize: blockSize,
		numBlocks: uint32(len(data)) / blockSize,
	}
	p.free = ring.NewFreeStackAt(freeHead, p.nextOf, p.setNextOf)
	return p, nil
}

// Seed pushes every block index onto the free list. Call exactly once per
// table lifetime (not on every attach by a re-opened client).
func (p *Pool) Seed() {
	for i := uint32(0); i < p.numBlocks; i++ {
		p.free.Push(i)
	}
}

// BlockSize returns the configured block granularity in bytes.
func (p *Pool) BlockSize() uint32 { return p.blockSize }

func (p *Pool) block(i uint32) []byte {
	off := i * p.blockSize
	return p.data[off : off+p.blockSize]
}

func (p *Pool) nextOf(i uint32) uint32 {
	b := p.block(i)
	return binary.LittleEndian.Uint32(b[p.blockSize-4:])
}

func (p *Pool) setNextOf(i, next uint32) {
	b := p.block(i)
	binary.LittleEndian.PutUint32(b[p.blockSize-4:], next)
}

// slotsPerHeader is the number of data-block indices one full header can
// hold before it must chase a chain pointer to a further header: the
// header's own last 4-byte slot is always reserved for that pointer.
func (p *Pool) slotsPerHeader() uint32 { return p.blockSize/4 - 1 }

// Alloc reserves a chain of blocks covering size bytes and returns it as a
// Slice. size 0 returns an empty Slice without consuming any block.
func (p *Pool) Alloc(size uint32) (wire.Slice, error) {
	if size == 0 {
		return wire.Slice{}, nil
	}
	if size <= p.blockSize {
		idx, ok := p.free.Pop()
		if !ok {
			return wire.Slice{}, kerr.New("streamtable.alloc", kerr.CantCreateObject)
		}
		return wire.Slice{Offset: idx, Length: size}, nil
	}

	dataBlocks := (size + p.blockSize - 1) / p.blockSize
	perHeader := p.slotsPerHeader()
	headers := (dataBlocks + perHeader - 1) / perHeader
	need := dataBlocks + headers

	reserved := make([]uint32, 0, need)
	for uint32(len(reserved)) < need {
		idx, ok := p.free.Pop()
		if !ok {
			for _, r := range reserved {
				p.free.Push(r)
			}
			return wire.Slice{}, kerr.New("streamtable.alloc", kerr.CantCreateObject)
		}
		reserved = append(reserved, idx)
	}

	headerIdxs, dataIdxs := reserved[:headers], reserved[headers:]
	di := uint32(0)
	for hi, h := range headerIdxs {
		slots := p.block(h)
		n := perHeader
		if dataBlocks-di < n {
			n = dataBlocks - di
		}
		for i := uint32(0); i < n; i++ {
			binary.LittleEndian.PutUint32(slots[i*4:i*4+4], dataIdxs[di])
			di++
		}
		next := ring.NilIndex
		if hi+1 < len(headerIdxs) {
			next = headerIdxs[hi+1]
		}
		binary.LittleEndian.PutUint32(slots[perHeader*4:perHeader*4+4], next)
	}
	return wire.Slice{Offset: headerIdxs[0], Length: size}, nil
}

// dataBlockIndices walks a chain's header block(s) and returns the data
// block indices in content order.
func (p *Pool) dataBlockIndices(s wire.Slice) []uint32 {
	if s.Length <= p.blockSize {
		return []uint32{s.Offset}
	}
	total := (s.Length + p.blockSize - 1) / p.blockSize
	perHeader := p.slotsPerHeader()
	out := make([]uint32, 0, total)
	header := s.Offset
	remaining := total
	for remaining > 0 {
		slots := p.block(header)
		n := perHeader
		if remaining < n {
			n = remaining
		}
		for i := uint32(0); i < n; i++ {
			out = append(out, binary.LittleEndian.Uint32(slots[i*4:i*4+4]))
		}
		remaining -= n
		if remaining > 0 {
			header = binary.LittleEndian.Uint32(slots[perHeader*4 : perHeader*4+4])
		}
	}
	return out
}

// headerChain returns the header block indices of a multi-block Slice, in
// chain order, for Free to release alongside the data blocks.
func (p *Pool) headerChain(s wire.Slice) []uint32 {
	total := (s.Length + p.blockSize - 1) / p.blockSize
	perHeader := p.slotsPerHeader()
	headers := (total + perHeader - 1) / perHeader
	out := make([]uint32, 0, headers)
	header := s.Offset
	remaining := total
	for remaining > 0 {
		out = append(out, header)
		n := perHeader
		if remaining < n {
			n = remaining
		}
		remaining -= n
		if remaining > 0 {
			slots := p.block(header)
			header = binary.LittleEndian.Uint32(slots[perHeader*4 : perHeader*4+4])
		}
	}
	return out
}

// Free returns every block in s's chain to the free list. A zero-length
// Slice is a no-op.
func (p *Pool) Free(s wire.Slice) {
	if s.Length == 0 {
		return
	}
	if s.Length <= p.blockSize {
		p.free.Push(s.Offset)
		return
	}
	for _, idx := range p.dataBlockIndices(s) {
		p.free.Push(idx)
	}
	for _, idx := range p.headerChain(s) {
		p.free.Push(idx)
	}
}

// ReadAt copies length bytes starting at offset within s's logical content
// into dst, walking the chain and skipping to the block that covers
// offset, per the pool's untrusted-buffer copy contract.
func (p *Pool) ReadAt(s wire.Slice, offset uint32, dst []byte) error {
	if uint64(offset)+uint64(len(dst)) > uint64(s.Length) {
		return kerr.New("streamtable.read_at", kerr.InvalidData)
	}
	blocks := p.dataBlockIndices(s)
	blockIdx := offset / p.blockSize
	inBlock := offset % p.blockSize
	remaining := dst
	for len(remaining) > 0 {
		block := p.block(blocks[blockIdx])
		n := uint32(len(remaining))
		if avail := p.blockSize - inBlock; n > avail {
			n = avail
		}
		copy(remaining[:n], block[inBlock:inBlock+n])
		remaining = remaining[n:]
		blockIdx++
		inBlock = 0
	}
	return nil
}

// WriteAt copies src into s's logical content starting at offset, walking
// the chain the same way ReadAt does.
func (p *Pool) WriteAt(s wire.Slice, offset uint32, src []byte) error {
	if uint64(offset)+uint64(len(src)) > uint64(s.Length) {
		return kerr.New("streamtable.write_at", kerr.InvalidData)
	}
	blocks := p.dataBlockIndices(s)
	blockIdx := offset / p.blockSize
	inBlock := offset % p.blockSize
	remaining := src
	for len(remaining) > 0 {
		block := p.block(blocks[blockIdx])
		n := uint32(len(remaining))
		if avail := p.blockSize - inBlock; n > avail {
			n = avail
		}
		copy(block[inBlock:inBlock+n], remaining[:n])
		remaining = remaining[n:]
		blockIdx++
		inBlock = 0
	}
	return nil
}
