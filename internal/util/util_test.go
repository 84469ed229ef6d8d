package util_test

import (
	"mooalloc/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Pattern(t *testing.T) {
	buf := make([]byte, 100)
	util.FillPattern(buf, 42)
	assert.Equal(t, -1, util.CheckPattern(buf, 42))
	assert.NotEqual(t, -1, util.CheckPattern(buf, 43))

	buf[37] ^= 0xff
	assert.Equal(t, 37, util.CheckPattern(buf, 42))
}

func Test_Hash_Spreads(t *testing.T) {
	seen := map[uint64]bool{}
	for i := range uint64(1000) {
		seen[util.Hash(i)] = true
	}
	assert.Len(t, seen, 1000)
}

func Test_PrettyPrintBytes(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	s := util.PrettyPrintBytes(data, 0x40, -1)

	assert.Contains(t, s, "0x00000040")
	assert.Contains(t, s, "deadbeef 01")
	assert.Contains(t, s, "5 of     5 bytes")
	// header, rule, one data row, borders
	assert.Equal(t, 5, strings.Count(s, "\n"))
}
