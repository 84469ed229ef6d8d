//go:build linux

package main

import "mooalloc/internal/region"

func createMmapProvider(reserve uint64) (region.Provider, error) {
	r, err := region.CreateMmapRegion(reserve)
	if err != nil { return nil, err }
	return r, nil
}
