// Package heap is a boundary-tag allocator over a single region.
//
// Blocks are laid out back to back from the start of the region and chained
// through their headers in address order, ending in a zero-sized sentinel that
// always sits in the last HEADER_SIZE bytes of the region. Placement is best
// fit, free blocks are split on allocation and coalesced with both neighbours
// on release, so two free blocks are never adjacent.
//
// A Heap is owned by a single goroutine. Callers sharing one must serialize
// access themselves.
package heap

import (
	c "mooalloc/internal"
	"mooalloc/internal/region"

	"errors"
	"fmt"
	"log/slog"

	"github.com/negrel/assert"
)

var (
	ErrInvalidRequest 	= errors.New("Heap: invalid request")
	ErrOverflow 		= errors.New("Heap: size overflow")
	ErrOutOfMemory 		= errors.New("Heap: out of memory")
	ErrInitialized 		= errors.New("Heap: already initialized")
	ErrCorrupt 			= errors.New("Heap: corrupt block chain")
)

// Ptr is the offset of a payload within the heap's region. Nil is never a
// valid payload offset since every payload follows a header.
type Ptr uint64
const Nil = Ptr(0)

type Heap struct {
	log		*slog.Logger
	prov	region.Provider
	mem		[]byte // committed region, refreshed after every grow

	first	uint64 // first block
	end		uint64 // sentinel
	live	bool
}

func CreateHeap(prov region.Provider) *Heap {
	return &Heap{
		log: 	slog.With("src", "Heap"),
		prov: 	prov,
		mem: 	prov.Bytes(),
	}
}

// Init provisions the first chunk of at least regionBytes as one free block.
// It may only run once, and not after the heap has already grown on demand.
func (h *Heap) Init(regionBytes uint64) error {
	if regionBytes == 0 { return ErrInvalidRequest }
	if h.live { return ErrInitialized }

	ch, err := h.prov.Grow(max(regionBytes, c.MIN_BLOCK + c.HEADER_SIZE))
	if err != nil { return fmt.Errorf("%w: %w", ErrOutOfMemory, err) }
	h.mem = h.prov.Bytes()

	first := ch.Off
	end := h.prov.Len() - c.HEADER_SIZE
	h.setHeader(first, end - first, true, false, end)
	h.writeFooter(first)
	h.setHeader(end, 0, false, true, c.NIL_NEXT)

	h.first = first
	h.end = end
	h.live = true

	h.log.Debug("Init", "region", h.prov.Len(), "first", first, "size", end - first)
	return nil
}

// Alloc returns a payload of at least size usable bytes, aligned to ALIGN.
func (h *Heap) Alloc(size uint64) (Ptr, error) {
	if size == 0 { return Nil, ErrInvalidRequest }
	total, ok := blockSize(size)
	if !ok { return Nil, ErrOutOfMemory }

	off, found := h.findFit(total)
	if found {
		h.place(off, total)
	} else {
		var err error
		off, err = h.extend(total)
		if err != nil { return Nil, err }
	}

	p := payloadOf(off)
	assert.True(uint64(p) % c.ALIGN == 0, "unaligned payload")
	return p, nil
}

// Calloc allocates count*elem bytes and zeroes the whole usable span.
func (h *Heap) Calloc(count uint64, elem uint64) (Ptr, error) {
	if count == 0 || elem == 0 { return Nil, ErrInvalidRequest }
	total := count * elem
	if total / count != elem { return Nil, ErrOverflow }

	p, err := h.Alloc(total)
	if err != nil { return Nil, err }
	clear(h.Bytes(p))
	return p, nil
}

// Realloc moves the payload at p into a block serving size bytes. A block that
// already has exactly the needed size is returned as is. Growth is never done
// in place. If the new block cannot be allocated p is left untouched.
func (h *Heap) Realloc(p Ptr, size uint64) (Ptr, error) {
	if p == Nil { return h.Alloc(size) }
	if size == 0 {
		h.Free(p)
		return Nil, nil
	}

	total, ok := blockSize(size)
	if !ok { return Nil, ErrOutOfMemory }
	off := headerOf(p)
	if h.size(off) == total { return p, nil }

	np, err := h.Alloc(size)
	if err != nil { return Nil, err }

	n := min(h.size(off), h.size(headerOf(np))) - c.HEADER_SIZE
	copy(h.mem[uint64(np):uint64(np)+n], h.mem[uint64(p):uint64(p)+n])
	h.Free(p)
	return np, nil
}

// Free returns the block behind p to the heap, merging it with free neighbours.
// p must have come from this heap and not been freed since, Nil is ignored.
func (h *Heap) Free(p Ptr) {
	if p == Nil { return }
	off := headerOf(p)
	assert.True(h.live && off >= h.first && off < h.end, "pointer outside heap")
	assert.True(!h.free(off), "double free")

	next := h.next(off)
	h.setFree(off, true)
	h.setPrevFree(next, true)
	h.writeFooter(off)

	// forward first: the backward merge folds in whatever this block holds now
	if !h.isSentinel(next) && h.free(next) {
		h.setSize(off, h.size(off) + h.size(next))
		h.setNext(off, h.next(next))
		h.writeFooter(off)
	}

	if h.prevFree(off) {
		size := h.prevFooter(off)
		if size < c.MIN_BLOCK || size > off - h.first {
			panic(fmt.Errorf("%w: block 0x%x: footer before it holds 0x%x", ErrCorrupt, off, size))
		}
		prev := off - size
		if !h.free(prev) || h.size(prev) != size || h.next(prev) != off {
			panic(fmt.Errorf("%w: block 0x%x: footer points at 0x%x which is not its free predecessor",
				ErrCorrupt, off, prev))
		}
		h.setSize(prev, size + h.size(off))
		h.setNext(prev, h.next(off))
		h.writeFooter(prev)
	}
}

// Bytes is the usable span of the payload at p. It aliases heap memory and is
// only valid until p is freed or reallocated.
func (h *Heap) Bytes(p Ptr) []byte {
	off := headerOf(p)
	end := off + h.size(off)
	return h.mem[uint64(p):end:end]
}

// Usable is the number of payload bytes behind p, never less than requested.
func (h *Heap) Usable(p Ptr) uint64 {
	return h.size(headerOf(p)) - c.HEADER_SIZE
}

// Close hands the region back to its provider. The heap is unusable after.
func (h *Heap) Close() error {
	h.mem = nil
	h.live = false
	return h.prov.Close()
}

// Best fit in address order, the first exact fit wins.
func (h *Heap) findFit(total uint64) (uint64, bool) {
	if !h.live { return 0, false }

	var best, bestSize uint64
	found := false
	for off := h.first; !h.isSentinel(off); off = h.next(off) {
		if !h.free(off) { continue }
		size := h.size(off)
		if size == total { return off, true }
		if size > total && (!found || size < bestSize) {
			best, bestSize, found = off, size, true
		}
	}
	return best, found
}

// Marks the free block at off busy, splitting off the tail as a new free block
// when it can hold at least a header and a footer.
func (h *Heap) place(off uint64, total uint64) {
	size := h.size(off)
	next := h.next(off)
	assert.GreaterOrEqual(size, total, "block too small")

	if size - total < c.MIN_BLOCK {
		h.setFree(off, false)
		h.setPrevFree(next, false)
		return
	}

	tail := off + total
	h.setHeader(tail, size - total, true, false, next)
	h.writeFooter(tail)
	h.setPrevFree(next, true)

	h.setSize(off, total)
	h.setFree(off, false)
	h.setNext(off, tail)
}

// Grows the region and installs a busy block of at least total bytes where the
// sentinel was, re-anchoring the sentinel at the new end. Whatever the provider
// rounded up beyond total is left as a free tail block if it is big enough.
func (h *Heap) extend(total uint64) (uint64, error) {
	need := total
	if !h.live { need += c.HEADER_SIZE }

	ch, err := h.prov.Grow(need)
	if err != nil {
		h.log.Debug("extend", "need", need, "err", err)
		return 0, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	h.mem = h.prov.Bytes()

	off := ch.Off
	prevFree := false
	if h.live {
		off = h.end
		prevFree = h.prevFree(h.end)
	}
	end := h.prov.Len() - c.HEADER_SIZE
	span := end - off

	size := span
	if span - total >= c.MIN_BLOCK { size = total }
	h.setHeader(off, size, false, prevFree, off + size)
	if size < span {
		tail := off + size
		h.setHeader(tail, span - size, true, false, end)
		h.writeFooter(tail)
	}
	h.setHeader(end, 0, false, size < span, c.NIL_NEXT)

	if !h.live {
		h.first = off
		h.live = true
	}
	h.end = end

	h.log.Debug("extend", "block", off, "size", size, "tail", span - size, "region", h.prov.Len())
	return off, nil
}
