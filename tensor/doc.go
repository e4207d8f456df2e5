// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense matrices the softmax kernels read and write.
//
// # Overview
//
// A Dense[T] is a strided row-major matrix over a flat buffer. Views share
// the parent's buffer, so tiles of a score matrix are extracted without
// copying:
//   - Generic element type (float32 or float64) via the Float constraint
//   - Zero-copy sub-matrix views (Dense.View)
//   - On-disk element types (Float16, Float32, Float64) for tensor files
//
// # Basic Usage
//
//	import "github.com/born-ml/onlinesoftmax/tensor"
//
//	func main() {
//	    s, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    tile, _ := s.View(0, 1, 2, 2) // columns 1..2 of both rows
//	    tile.Set(0, 0, 9)             // s.At(0, 1) is now 9
//	}
package tensor
