// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the blocked (online) softmax and attention kernels.
//
// # Overview
//
// The row softmax of an N×M score matrix is computed one Br×Bc tile at a
// time. Each row tile keeps a running maximum, a running sum and a partial
// output, and rescales them whenever a new tile raises the maximum, so the
// result equals the one-pass softmax without holding a whole row of
// exponentials at once. This package contains:
//   - Kernels: OnlineSoftmax, OnlineAttention, FlashAttention
//   - Building blocks: Accumulator (per row tile state), Plan (tiling)
//   - References: OracleSoftmax, OracleAttention, StandardAttention
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/onlinesoftmax/nn"
//	    "github.com/born-ml/onlinesoftmax/tensor"
//	)
//
//	func main() {
//	    s := tensor.Randn[float32](256, 512, rand.New(rand.NewSource(1)))
//
//	    res, err := nn.OnlineSoftmax(s, nn.Config{BlockRows: 16, BlockCols: 32})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    probs := res.Output // 256×512, rows sum to 1
//	}
//
// # Degenerate rows
//
// A row whose scores are all -Inf has no softmax. It is emitted as a zero
// row with Max and LogSumExp -Inf and counted in Result.DegenerateRows.
package nn
