// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"math/bits"
	"sync"
)

// Buffer pool size classes (powers of 2)
// Index 0 = 1KB, Index 1 = 2KB, ..., Index 13 = 8MB
const (
	minPoolSize   = 1 << 10 // 1KB minimum
	maxPoolSize   = 1 << 23 // 8MB maximum (matches the upload chunk size)
	numPoolLevels = 14      // 1KB to 8MB (14 levels)
)

var bufferPools [numPoolLevels]sync.Pool

func init() {
	for i := range bufferPools {
		size := minPoolSize << i
		bufferPools[i] = sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		}
	}
}

// poolIndex returns the pool index for a given size.
// Returns -1 if size is larger than maxPoolSize.
func poolIndex(size int) int {
	if size <= minPoolSize {
		return 0
	}
	if size > maxPoolSize {
		return -1
	}
	// Smallest power of 2 >= size; -10 because minPoolSize is 1<<10
	idx := bits.Len(uint(size-1)) - 10
	if idx < 0 {
		return 0
	}
	if idx >= numPoolLevels {
		return -1
	}
	return idx
}

// GetBuffer returns a byte slice of at least the requested size, reusing a
// pooled chunk buffer when one is available. The returned slice is sliced to
// the exact requested length. Use PutBuffer to return it when done.
//
// Sizes above maxPoolSize allocate directly without pooling.
func GetBuffer(size int) []byte {
	idx := poolIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	bufPtr := bufferPools[idx].Get().(*[]byte)
	return (*bufPtr)[:size]
}

// PutBuffer returns a buffer obtained from GetBuffer to the pool.
// Buffers larger than maxPoolSize are silently discarded.
//
// WARNING: Do not use the buffer after calling PutBuffer.
func PutBuffer(buf []byte) {
	c := cap(buf)
	idx := poolIndex(c)
	if idx < 0 {
		return // Too large, let GC handle it
	}
	// Only accept exact pool sizes so foreign slices cannot corrupt a class
	poolSize := minPoolSize << idx
	if c != poolSize {
		return
	}
	buf = buf[:c]
	bufferPools[idx].Put(&buf)
}
