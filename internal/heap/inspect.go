package heap

import (
	c "mooalloc/internal"

	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BlockInfo is a copy of one directory node.
type BlockInfo struct {
	Off			uint64
	Size		uint64
	Free		bool
	PrevFree	bool
	Next		uint64
	Sentinel	bool
}

// Payload is where the block's payload would start.
func (b BlockInfo) Payload() Ptr { return payloadOf(b.Off) }

type Stats struct {
	Region		uint64 // committed bytes
	Blocks		int // excluding the sentinel
	FreeBlocks	int
	BusyBytes	uint64
	FreeBytes	uint64
	LargestFree	uint64
}

func (h *Heap) info(off uint64) BlockInfo {
	return BlockInfo{
		Off: 		off,
		Size: 		h.size(off),
		Free: 		h.free(off),
		PrevFree: 	h.prevFree(off),
		Next: 		h.next(off),
		Sentinel: 	h.isSentinel(off),
	}
}

// Calls fn for every node up to and including the sentinel. Stops early with
// an ErrCorrupt error if a link leaves the region or does not move forward.
func (h *Heap) walk(fn func(off uint64) error) error {
	if !h.live { return nil }
	regionEnd := uint64(len(h.mem))

	off := h.first
	for {
		if off > regionEnd - c.HEADER_SIZE {
			return fmt.Errorf("%w: block 0x%x outside region of 0x%x", ErrCorrupt, off, regionEnd)
		}
		err := fn(off)
		if err != nil { return err }
		if h.isSentinel(off) { return nil }

		next := h.next(off)
		if next <= off {
			return fmt.Errorf("%w: block 0x%x links back to 0x%x", ErrCorrupt, off, next)
		}
		off = next
	}
}

// Dump copies out the directory in address order, sentinel last. A chain
// that is too broken to walk is dumped up to the first bad link.
func (h *Heap) Dump() []BlockInfo {
	var blocks []BlockInfo
	_ = h.walk(func(off uint64) error {
		blocks = append(blocks, h.info(off))
		return nil
	})
	return blocks
}

// Verify checks every directory invariant and reports the first violation.
func (h *Heap) Verify() error {
	if !h.live { return nil }

	lastFree := false
	return h.walk(func(off uint64) error {
		b := h.info(off)
		if b.Sentinel {
			switch {
			case b.Size != 0 || b.Free || b.Next != c.NIL_NEXT:
				return fmt.Errorf("%w: sentinel 0x%x is not a terminal marker", ErrCorrupt, off)
			case b.PrevFree != lastFree:
				return fmt.Errorf("%w: sentinel 0x%x prev_free=%v, last block free=%v",
					ErrCorrupt, off, b.PrevFree, lastFree)
			case off + c.HEADER_SIZE != uint64(len(h.mem)):
				return fmt.Errorf("%w: sentinel 0x%x does not end region of 0x%x", ErrCorrupt, off, len(h.mem))
			}
			return nil
		}

		switch {
		case b.Size < c.MIN_BLOCK || b.Size % c.ALIGN != 0:
			return fmt.Errorf("%w: block 0x%x has bad size 0x%x", ErrCorrupt, off, b.Size)
		case b.Next != off + b.Size:
			return fmt.Errorf("%w: block 0x%x of size 0x%x links to 0x%x", ErrCorrupt, off, b.Size, b.Next)
		case b.Next > h.end:
			return fmt.Errorf("%w: block 0x%x runs past sentinel 0x%x", ErrCorrupt, off, h.end)
		case b.PrevFree != lastFree:
			return fmt.Errorf("%w: block 0x%x prev_free=%v, predecessor free=%v",
				ErrCorrupt, off, b.PrevFree, lastFree)
		case b.Free && lastFree:
			return fmt.Errorf("%w: block 0x%x and its predecessor are both free", ErrCorrupt, off)
		case b.Free && h.footer(off) != b.Size:
			return fmt.Errorf("%w: block 0x%x footer 0x%x != size 0x%x", ErrCorrupt, off, h.footer(off), b.Size)
		}
		lastFree = b.Free
		return nil
	})
}

// Fingerprint hashes the directory layout. Two equal fingerprints mean the
// same blocks with the same flags, payload contents are not included.
func (h *Heap) Fingerprint() uint64 {
	d := xxhash.New()
	var rec [c.LEN_U64 * 4]byte
	for _, b := range h.Dump() {
		flags := uint64(0)
		if b.Free { flags |= flagFree }
		if b.PrevFree { flags |= flagPrevFree }
		c.Bin.PutUint64(rec[0x00:], b.Off)
		c.Bin.PutUint64(rec[0x08:], b.Size)
		c.Bin.PutUint64(rec[0x10:], flags)
		c.Bin.PutUint64(rec[0x18:], b.Next)
		d.Write(rec[:])
	}
	return d.Sum64()
}

func (h *Heap) Stats() Stats {
	st := Stats{Region: uint64(len(h.mem))}
	for _, b := range h.Dump() {
		if b.Sentinel { break }
		st.Blocks++
		if b.Free {
			st.FreeBlocks++
			st.FreeBytes += b.Size
			st.LargestFree = max(st.LargestFree, b.Size)
		} else {
			st.BusyBytes += b.Size
		}
	}
	return st
}

func yesno(v bool) string {
	if v { return "yes" }
	return "no"
}

// String renders the directory as a table.
func (h *Heap) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("┏━━━━━━━━━━━━┳━━━━━━━━━━━━━━━┳━━━━━━┳━━━━━━━┳━━━━━━━━━━━━┓\n")
	b.WriteString("┃ Block      ┃          Size ┃ Free ┃ PFree ┃ Next       ┃\n")
	b.WriteString("┣━━━━━━━━━━━━╋━━━━━━━━━━━━━━━╋━━━━━━╋━━━━━━━╋━━━━━━━━━━━━┫\n")
	for _, blk := range h.Dump() {
		if blk.Sentinel {
			p.Fprintf(&b, "┃ 0x%08x ┃      sentinel ┃   -- ┃ %5s ┃         -- ┃\n",
				blk.Off, yesno(blk.PrevFree))
			continue
		}
		p.Fprintf(&b, "┃ 0x%08x ┃ %13d ┃ %4s ┃ %5s ┃ 0x%08x ┃\n",
			blk.Off, blk.Size, yesno(blk.Free), yesno(blk.PrevFree), blk.Next)
	}
	b.WriteString("┗━━━━━━━━━━━━┻━━━━━━━━━━━━━━━┻━━━━━━┻━━━━━━━┻━━━━━━━━━━━━┛\n")

	st := h.Stats()
	p.Fprintf(&b, "region %d bytes | %d blocks, %d free | busy %d, free %d, largest free %d\n",
		st.Region, st.Blocks, st.FreeBlocks, st.BusyBytes, st.FreeBytes, st.LargestFree)
	return b.String()
}
