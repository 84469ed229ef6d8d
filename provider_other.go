//go:build !linux

package main

import (
	"fmt"

	"mooalloc/internal/region"
)

func createMmapProvider(reserve uint64) (region.Provider, error) {
	return nil, fmt.Errorf("%w: mmap provider is linux only", region.ErrInvalidArg)
}
