package heap

import (
	c "mooalloc/internal"
)

// Block header, lives at the start of every block (and the sentinel).
//
//	0x00  8B  size | flags   size is a multiple of ALIGN, flags use the low bits
//	0x08  8B  next           offset of the next header, NIL_NEXT for the sentinel
//
// A free block also mirrors its size in a footer slot occupying its last
// FOOTER_SIZE bytes, so the block after it can find its header.
const (
	offSize 	= 0x00
	offNext 	= 0x08

	flagFree 		= uint64(0x1)
	flagPrevFree 	= uint64(0x2)
	flagMask 		= uint64(c.ALIGN - 1)
)

func (h *Heap) word(off uint64) uint64 		{ return c.Bin.Uint64(h.mem[off:]) }
func (h *Heap) setWord(off uint64, v uint64) 	{ c.Bin.PutUint64(h.mem[off:], v) }

func (h *Heap) size(off uint64) uint64 		{ return h.word(off+offSize) &^ flagMask }
func (h *Heap) free(off uint64) bool 		{ return h.word(off+offSize)&flagFree != 0 }
func (h *Heap) prevFree(off uint64) bool 	{ return h.word(off+offSize)&flagPrevFree != 0 }
func (h *Heap) next(off uint64) uint64 		{ return h.word(off+offNext) }

func (h *Heap) setSize(off uint64, size uint64) {
	h.setWord(off+offSize, size | h.word(off+offSize)&flagMask)
}
func (h *Heap) setNext(off uint64, next uint64) 	{ h.setWord(off+offNext, next) }
func (h *Heap) setFree(off uint64, v bool) 			{ h.setFlag(off, flagFree, v) }
func (h *Heap) setPrevFree(off uint64, v bool) 		{ h.setFlag(off, flagPrevFree, v) }

func (h *Heap) setFlag(off uint64, flag uint64, v bool) {
	w := h.word(off+offSize)
	if v {
		w |= flag
	} else {
		w &^= flag
	}
	h.setWord(off+offSize, w)
}

// Writes a whole header at once.
func (h *Heap) setHeader(off uint64, size uint64, free bool, prevFree bool, next uint64) {
	w := size
	if free { w |= flagFree }
	if prevFree { w |= flagPrevFree }
	h.setWord(off+offSize, w)
	h.setWord(off+offNext, next)
}

// Footer slot of the block at off, only meaningful while the block is free.
func (h *Heap) footerOff(off uint64) uint64 	{ return off + h.size(off) - c.FOOTER_SIZE }
func (h *Heap) footer(off uint64) uint64 		{ return h.word(h.footerOff(off)) }
func (h *Heap) writeFooter(off uint64) 			{ h.setWord(h.footerOff(off), h.size(off)) }

// Size mirrored in the footer directly before off, i.e. the previous block's
// size if that block is free.
func (h *Heap) prevFooter(off uint64) uint64 	{ return h.word(off - c.FOOTER_SIZE) }

func (h *Heap) isSentinel(off uint64) bool 	{ return off == h.end }

// Block size needed to serve a payload of size bytes.
func blockSize(size uint64) (uint64, bool) {
	if size > ^uint64(0) - c.HEADER_SIZE { return 0, false }
	total, ok := c.AlignUp(size + c.HEADER_SIZE, c.ALIGN)
	if !ok { return 0, false }
	return max(total, c.MIN_BLOCK), true
}

func headerOf(p Ptr) uint64 	{ return uint64(p) - c.HEADER_SIZE }
func payloadOf(off uint64) Ptr 	{ return Ptr(off + c.HEADER_SIZE) }
