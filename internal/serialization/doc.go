// Package serialization reads and writes flat binary tensor files.
//
// A tensor file carries no header: it is the row-major element array and
// nothing else. Shape and element type travel out of band, on the command
// line of the tool that produces or consumes the file:
//
//	File Structure:
//	  [rows*cols elements, little-endian, row-major]
//	  element = float16 (2 bytes) | float32 (4 bytes) | float64 (8 bytes)
//
// File names follow the harness convention:
//   - input{N}.bin for inputs (scores, or queries/keys/values)
//   - param{N}.bin for produced outputs
//   - golden.bin / {name}_golden.bin for expected outputs
//
// Example usage:
//
//	// Save scores as float16
//	if err := serialization.SaveDense(serialization.InputName(0), tensor.Float16, s); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load them back as float32
//	s, err := serialization.LoadDense[float32](serialization.InputName(0), tensor.Float16, n, m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Loading maps the file read-only (golang.org/x/exp/mmap) and decodes it in
// fixed-size chunks, so the page cache is shared with whatever produced it.
package serialization
