//go:build linux

package region

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// The reservation is inaccessible until committed. NORESERVE keeps large
// reservations from counting against overcommit until they are touched.
const MMAP_MODE   	= unix.MAP_ANON | unix.MAP_PRIVATE | unix.MAP_NORESERVE
const MMAP_RESERVE 	= unix.PROT_NONE
const MMAP_COMMIT 	= unix.PROT_READ | unix.PROT_WRITE

// MmapRegion reserves its whole address range once and commits it page by
// page, which is what sbrk would give us without fighting the Go runtime for
// the real break. The base address is page aligned (check using:
// `getconf PAGESIZE`, basically always 0x1000).
type MmapRegion struct {
	log		*slog.Logger
	raw		[]byte // full reservation - to unmap later
	brk		uint64
	gran	uint64
}

func CreateMmapRegion(reserve uint64) (*MmapRegion, error) {
	log := slog.With("src", "Region", "kind", "mmap")

	gran := uint64(os.Getpagesize())
	if reserve == 0 || reserve % gran != 0 { return nil, ErrInvalidArg }

	raw, err := unix.Mmap(-1, 0, int(reserve), MMAP_RESERVE, MMAP_MODE)
	if err != nil {
		log.Error("CreateMmapRegion", "reserve", reserve, "err", err)
		return nil, fmt.Errorf("%w: mmap: %w", ErrExhausted, err)
	}
	log.Debug("CreateMmapRegion", "bytes", len(raw), "pages", uint64(len(raw)) / gran)

	return &MmapRegion{
		log: 	log,
		raw: 	raw,
		brk: 	0,
		gran: 	gran,
	}, nil
}

func (r *MmapRegion) Grow(minBytes uint64) (Chunk, error) {
	if r.raw == nil { return Chunk{}, ErrInvalidArg }

	n, err := growSize(r.brk, uint64(len(r.raw)), r.gran, minBytes)
	if err != nil {
		r.log.Debug("Grow", "min", minBytes, "err", err)
		return Chunk{}, err
	}

	err = unix.Mprotect(r.raw[r.brk:r.brk+n], MMAP_COMMIT)
	if err != nil {
		r.log.Error("Grow", "off", r.brk, "len", n, "err", err)
		return Chunk{}, fmt.Errorf("%w: mprotect: %w", ErrExhausted, err)
	}

	ch := Chunk{Off: r.brk, Len: n}
	r.brk += n
	r.log.Debug("Grow", "off", ch.Off, "len", ch.Len, "brk", r.brk)
	return ch, nil
}

func (r *MmapRegion) Bytes() []byte 		{ return r.raw[:r.brk:r.brk] }
func (r *MmapRegion) Len() uint64 			{ return r.brk }
func (r *MmapRegion) Granularity() uint64 	{ return r.gran }
func (r *MmapRegion) Reserve() uint64 		{ return uint64(len(r.raw)) }

func (r *MmapRegion) Close() error {
	if r.raw == nil { return nil }
	err := unix.Munmap(r.raw)
	if err != nil {
		r.log.Error("Close", "err", err)
		return err
	}
	r.raw = nil
	r.brk = 0
	return nil
}
