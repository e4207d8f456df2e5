// Package verify compares produced tensors against golden data.
//
// Each output has a role that fixes its tolerance: the running maximum is
// exact up to input rounding and is held to an absolute bound, while the
// running sum and the probabilities are held to relative bounds. A check
// passes only when every output is within its tolerance.
package verify

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrToleranceExceeded is returned by Check when at least one output is
// outside its tolerance.
var ErrToleranceExceeded = errors.New("tolerance exceeded")

// ErrLengthMismatch is returned when expected and actual differ in length.
var ErrLengthMismatch = errors.New("expected and actual lengths differ")

// Role identifies what an output holds.
type Role string

// Output roles.
const (
	RoleMax    Role = "m" // running maximum per row
	RoleSum    Role = "l" // running sum per row
	RoleOutput Role = "p" // probabilities or weighted output
)

// Tolerance bounds the L2 error of one output. A zero bound is not checked.
type Tolerance struct {
	Abs float64 // Bound on ‖actual − expected‖₂.
	Rel float64 // Bound on ‖actual − expected‖₂ / ‖expected‖₂.
}

// DefaultTolerance returns the bound used for role.
func DefaultTolerance(role Role) Tolerance {
	switch role {
	case RoleMax:
		return Tolerance{Abs: 1e-4}
	case RoleSum:
		return Tolerance{Rel: 1e-2}
	default:
		return Tolerance{Rel: 1e-4}
	}
}

// Report is the outcome of one comparison.
type Report struct {
	Name      string
	Role      Role
	Elements  int
	AbsL2     float64 // ‖actual − expected‖₂
	RelL2     float64 // AbsL2 / ‖expected‖₂; 0 when both are zero, +Inf when only expected is
	MaxAbs    float64 // largest elementwise difference
	Tolerance Tolerance
	Pass      bool
}

// String formats r as a single diagnostic line.
func (r Report) String() string {
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	return fmt.Sprintf("%s %-8s role=%s n=%d l2=%.3e rel=%.3e maxabs=%.3e (abs<%g rel<%g)",
		status, r.Name, r.Role, r.Elements, r.AbsL2, r.RelL2, r.MaxAbs, r.Tolerance.Abs, r.Tolerance.Rel)
}

// Compare measures actual against expected. Positions where both hold the
// same value, infinities included, contribute nothing; a NaN anywhere fails
// the comparison.
func Compare(name string, role Role, expected, actual []float64, tol Tolerance) (Report, error) {
	if len(expected) != len(actual) {
		return Report{}, fmt.Errorf("%w: %s: expected %d, actual %d", ErrLengthMismatch, name, len(expected), len(actual))
	}

	exp := make([]float64, len(expected))
	act := make([]float64, len(actual))
	for i, e := range expected {
		if a := actual[i]; e != a || !math.IsInf(e, 0) {
			exp[i], act[i] = e, a
		}
	}

	r := Report{Name: name, Role: role, Elements: len(expected), Tolerance: tol}
	diff := make([]float64, len(exp))
	floats.SubTo(diff, act, exp)
	r.AbsL2 = floats.Norm(diff, 2)
	r.MaxAbs = floats.Norm(diff, math.Inf(1))

	norm := floats.Norm(exp, 2)
	switch {
	case r.AbsL2 == 0:
		r.RelL2 = 0
	case norm == 0:
		r.RelL2 = math.Inf(1)
	default:
		r.RelL2 = r.AbsL2 / norm
	}

	r.Pass = !floats.HasNaN(expected) && !floats.HasNaN(actual) &&
		(tol.Abs == 0 || r.AbsL2 < tol.Abs) &&
		(tol.Rel == 0 || r.RelL2 < tol.Rel)
	return r, nil
}

// Check returns ErrToleranceExceeded naming every failed report, or nil.
func Check(reports ...Report) error {
	var failed []string
	for _, r := range reports {
		if !r.Pass {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrToleranceExceeded, strings.Join(failed, ", "))
	}
	return nil
}
