package verify

import (
	"github.com/born-ml/onlinesoftmax/internal/serialization"
	"github.com/born-ml/onlinesoftmax/internal/tensor"
)

// Pair names a golden file and the produced file it is checked against.
type Pair struct {
	Name     string
	Role     Role
	Expected string
	Actual   string
	Rows     int
	Cols     int
}

// CompareFiles loads both files of p as rows×cols dt elements and compares
// them with the role's default tolerance.
func CompareFiles(p Pair, dt tensor.DataType) (Report, error) {
	expected, err := serialization.LoadDense[float64](p.Expected, dt, p.Rows, p.Cols)
	if err != nil {
		return Report{}, err
	}
	actual, err := serialization.LoadDense[float64](p.Actual, dt, p.Rows, p.Cols)
	if err != nil {
		return Report{}, err
	}
	return Compare(p.Name, p.Role, expected.Data(), actual.Data(), DefaultTolerance(p.Role))
}
