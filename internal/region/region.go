// Region providers. A region is one contiguous, append-only span of memory that
// the heap carves blocks out of. It only ever grows at its tail, and the base
// never moves, so offsets handed out earlier stay valid for its lifetime.
package region

import (
	c "mooalloc/internal"

	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrExhausted 	= errors.New("Region: address space exhausted")
	ErrInvalidArg 	= errors.New("Region: invalid arg")
)

// A Chunk is the span added by one Grow call. Off is always the region length
// before the call.
type Chunk struct {
	Off 	uint64
	Len 	uint64
}

func (ch Chunk) End() uint64 { return ch.Off + ch.Len }

// Provider is the heap's source of address space.
//
// Grow rounds minBytes up to Granularity and either commits the whole chunk or
// nothing. Committed memory is zeroed and never aliases an earlier chunk.
// Bytes returns the committed region [0, Len), slices returned by earlier calls
// stay valid after Grow.
type Provider interface {
	Grow(minBytes uint64) (Chunk, error)
	Bytes() []byte
	Len() uint64
	Granularity() uint64
	Close() error
}

func validGranularity(g uint64) bool {
	return g >= c.ALIGN && g&(g-1) == 0
}

// growSize is the rounded chunk length for a request, or an error if it cannot
// fit between brk and limit.
func growSize(brk uint64, limit uint64, gran uint64, minBytes uint64) (uint64, error) {
	if minBytes == 0 { return 0, ErrInvalidArg }
	n, ok := c.AlignUp(minBytes, gran)
	if !ok || n > limit - brk {
		return 0, fmt.Errorf("%w: want 0x%x, have 0x%x of 0x%x", ErrExhausted, minBytes, limit - brk, limit)
	}
	return n, nil
}

// SliceRegion is backed by an ordinary Go allocation sized to the full
// reservation. The runtime hands us zeroed memory so Grow only moves the break.
type SliceRegion struct {
	log		*slog.Logger
	raw		[]byte
	brk		uint64
	gran	uint64
}

func CreateSliceRegion(reserve uint64, granularity uint64) (*SliceRegion, error) {
	if !validGranularity(granularity) || reserve == 0 || reserve % granularity != 0 {
		return nil, ErrInvalidArg
	}
	return &SliceRegion{
		log: 	slog.With("src", "Region", "kind", "slice"),
		raw: 	make([]byte, reserve),
		brk: 	0,
		gran: 	granularity,
	}, nil
}

func (r *SliceRegion) Grow(minBytes uint64) (Chunk, error) {
	n, err := growSize(r.brk, uint64(len(r.raw)), r.gran, minBytes)
	if err != nil {
		r.log.Debug("Grow", "min", minBytes, "err", err)
		return Chunk{}, err
	}
	ch := Chunk{Off: r.brk, Len: n}
	r.brk += n
	r.log.Debug("Grow", "off", ch.Off, "len", ch.Len, "brk", r.brk)
	return ch, nil
}

func (r *SliceRegion) Bytes() []byte 		{ return r.raw[:r.brk:r.brk] }
func (r *SliceRegion) Len() uint64 			{ return r.brk }
func (r *SliceRegion) Granularity() uint64 	{ return r.gran }
func (r *SliceRegion) Reserve() uint64 		{ return uint64(len(r.raw)) }

func (r *SliceRegion) Close() error {
	r.raw = nil
	r.brk = 0
	return nil
}
