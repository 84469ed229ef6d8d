package util

import (
	"fmt"
	"strings"
)

// Hex dump of a payload span, base is the region offset of data[0] so rows are
// labelled with heap offsets.
func PrettyPrintBytes(data []byte, base uint64, limit int) string {
	if limit > len(data) || limit < 0 {
		limit = len(data)
	}

	const bytesPerRow = 16
	var s strings.Builder
	s.WriteString("┏━━━━━━━━━━━━┳━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┓\n")
	fmt.Fprintf(&s, "┃ Offset     ┃ %5d of %5d bytes                               ┃\n", limit, len(data))
	s.WriteString("┣━━━━━━━━━━━━╋━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┫\n")

	for i := 0; i < limit; i += bytesPerRow {
		fmt.Fprintf(&s, "┃ 0x%08x ┃ ", base+uint64(i))
		for j := 0; j < bytesPerRow; j++ {
			if i+j < limit {
				fmt.Fprintf(&s, "%02x", data[i+j])
			} else {
				s.WriteString("  ")
			}
			// Space every 4 bytes to keep your eyes from crossing
			if (j+1)%4 == 0 {
				s.WriteString(" ")
			}
		}
		s.WriteString("┃\n")
	}
	s.WriteString("┗━━━━━━━━━━━━┻━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛\n")

	return s.String()
}

// splitmix64
func Hash(val uint64) uint64 {
	x := val
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x =  x ^ (x >> 31)
	return x
}

// Fills buf with a pattern derived from seed, so a payload can later be checked
// with CheckPattern.
func FillPattern(buf []byte, seed uint64) {
	for i := range buf {
		buf[i] = byte(Hash(seed + uint64(i)))
	}
}

// Index of the first byte that does not match FillPattern(seed), or -1.
func CheckPattern(buf []byte, seed uint64) int {
	for i := range buf {
		if buf[i] != byte(Hash(seed + uint64(i))) {
			return i
		}
	}
	return -1
}
