// Constants
package internal

import (
	"encoding/binary"
	"math"
)

const LEN_U16 	= 0x02
const LEN_U32 	= 0x04
const LEN_U64 	= 0x08

// Double-word alignment for block sizes and payload offsets.
const ALIGN 		= LEN_U64

// Block header layout, see heap/block.go
const HEADER_SIZE 	= 0x10
const FOOTER_SIZE 	= HEADER_SIZE
const MIN_BLOCK 	= HEADER_SIZE + FOOTER_SIZE
const NIL_NEXT 		= uint64(math.MaxUint64)

const _OS_PAGE			= 0x1000
const DEFAULT_REGION	= _OS_PAGE
const DEFAULT_RESERVE	= _OS_PAGE << 12 // 16MiB of address space

// Rounds n up to a multiple of a (a must be a power of two). The bool is false
// when the result does not fit in a uint64.
func AlignUp(n uint64, a uint64) (uint64, bool) {
	if n > math.MaxUint64 - (a - 1) {
		return 0, false
	}
	return (n + a - 1) &^ (a - 1), true
}

// This is an alias for endianness effectively, so we only define endianness in one place (here).
// Headers never leave the process so we use the native-friendly order.
var Bin = binary.LittleEndian
