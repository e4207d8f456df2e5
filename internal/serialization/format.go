package serialization

import (
	"fmt"
	"path/filepath"
)

// Golden output names written by the generator and read by the checker.
const (
	GoldenFile   = "golden.bin"
	GoldenMax    = "m0"
	GoldenSum    = "l0"
	GoldenOutput = "o0"
	GoldenTrace  = "s1"
)

// Produced output slots, in the order the kernel writes them.
const (
	ParamMax    = 0 // running maximum per row
	ParamSum    = 1 // running sum per row
	ParamOutput = 2 // probabilities or weighted output
	ParamTrace  = 3 // per-block exp(S - m) trace, optional
)

// chunkElems is the number of elements decoded per read.
const chunkElems = 16 * 1024

// InputName returns "input{i}.bin".
func InputName(i int) string {
	return fmt.Sprintf("input%d.bin", i)
}

// ParamName returns "param{i}.bin".
func ParamName(i int) string {
	return fmt.Sprintf("param%d.bin", i)
}

// GoldenName returns "{name}_golden.bin", or "golden.bin" for an empty name.
func GoldenName(name string) string {
	if name == "" {
		return GoldenFile
	}
	return name + "_" + GoldenFile
}

// Join places name under dir; an empty dir means the working directory.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
