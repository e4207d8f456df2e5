// Package tile partitions an N×M score space into row tiles and column tiles.
//
// A Plan clamps the requested tile sizes to the matrix, computes the tile
// counts by ceiling division and hands out block descriptors in row-major
// order: every column tile of row tile i before any block of row tile i+1.
// Row tiles are independent of one another; the column tiles of a single row
// tile must be consumed in the order they are produced.
package tile

import (
	"errors"
	"fmt"
	"iter"

	"github.com/born-ml/onlinesoftmax/internal/tensor"
)

// ErrInvalidDimension is returned for a non-positive matrix or tile dimension.
var ErrInvalidDimension = errors.New("dimension must be positive")

// Plan is the tiling of an N×M matrix into Tr×Tc blocks of at most Br×Bc.
type Plan struct {
	N, M   int // Logical matrix rows and columns.
	Br, Bc int // Tile height and width after clamping.
	Tr, Tc int // Number of row tiles and column tiles.
}

// NewPlan validates the dimensions and builds the tiling.
//
// A tile larger than the matrix is reduced to the matrix size; that is never
// an error. Any non-positive argument is.
func NewPlan(n, m, br, bc int) (Plan, error) {
	for _, d := range []struct {
		name  string
		value int
	}{{"rows", n}, {"cols", m}, {"tile rows", br}, {"tile cols", bc}} {
		if d.value <= 0 {
			return Plan{}, fmt.Errorf("%w: %s = %d", ErrInvalidDimension, d.name, d.value)
		}
	}

	br = min(br, n)
	bc = min(bc, m)
	return Plan{
		N:  n,
		M:  m,
		Br: br,
		Bc: bc,
		Tr: ceilDiv(n, br),
		Tc: ceilDiv(m, bc),
	}, nil
}

// Span is one tile along a single axis.
type Span struct {
	Index int // Tile index along the axis.
	Start int // First row (or column) covered.
	Size  int // Number of rows (or columns) covered; the last tile may be short.
}

// End returns one past the last covered index.
func (s Span) End() int { return s.Start + s.Size }

// Block describes the sub-view S[Row.Start:Row.End(), Col.Start:Col.End()].
type Block struct {
	Row Span
	Col Span
}

// I returns the row tile index.
func (b Block) I() int { return b.Row.Index }

// J returns the column tile index.
func (b Block) J() int { return b.Col.Index }

// String formats the block as "(i,j) 4x3@[8,12]".
func (b Block) String() string {
	return fmt.Sprintf("(%d,%d) %dx%d@[%d,%d]", b.Row.Index, b.Col.Index, b.Row.Size, b.Col.Size, b.Row.Start, b.Col.Start)
}

// RowTile returns row tile i.
func (p Plan) RowTile(i int) Span {
	if i < 0 || i >= p.Tr {
		panic(fmt.Sprintf("tile: row tile %d out of range [0,%d)", i, p.Tr))
	}
	return span(i, p.Br, p.N)
}

// ColTile returns column tile j.
func (p Plan) ColTile(j int) Span {
	if j < 0 || j >= p.Tc {
		panic(fmt.Sprintf("tile: column tile %d out of range [0,%d)", j, p.Tc))
	}
	return span(j, p.Bc, p.M)
}

// Block returns the descriptor of block (i, j).
func (p Plan) Block(i, j int) Block {
	return Block{Row: p.RowTile(i), Col: p.ColTile(j)}
}

// NumBlocks returns Tr*Tc.
func (p Plan) NumBlocks() int { return p.Tr * p.Tc }

// RowTiles yields every row tile in order.
func (p Plan) RowTiles() iter.Seq[Span] {
	return func(yield func(Span) bool) {
		for i := 0; i < p.Tr; i++ {
			if !yield(p.RowTile(i)) {
				return
			}
		}
	}
}

// RowBlocks yields the blocks of row tile i from left to right.
func (p Plan) RowBlocks(i int) iter.Seq[Block] {
	row := p.RowTile(i)
	return func(yield func(Block) bool) {
		for j := 0; j < p.Tc; j++ {
			if !yield(Block{Row: row, Col: p.ColTile(j)}) {
				return
			}
		}
	}
}

// Blocks yields all blocks in row-major order. The sequence is finite and
// may be ranged over any number of times.
func (p Plan) Blocks() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for i := 0; i < p.Tr; i++ {
			for b := range p.RowBlocks(i) {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// String summarises the plan for logs.
func (p Plan) String() string {
	if p.Tr == 0 || p.Tc == 0 {
		return "empty plan"
	}
	return fmt.Sprintf("%dx%d in %dx%d tiles of %dx%d (last %dx%d)",
		p.N, p.M, p.Tr, p.Tc, p.Br, p.Bc, p.RowTile(p.Tr-1).Size, p.ColTile(p.Tc-1).Size)
}

// View returns the block of s described by b, sharing s's buffer.
func View[T tensor.Float](s *tensor.Dense[T], b Block) (*tensor.Dense[T], error) {
	return s.View(b.Row.Start, b.Col.Start, b.Row.Size, b.Col.Size)
}

func span(index, size, total int) Span {
	start := index * size
	return Span{Index: index, Start: start, Size: min(size, total-start)}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
