package tracker

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// ForbiddenCost marks cost matrix cells that must never be selected.  It
	// stands in for infinity so solvers work with finite values only.
	ForbiddenCost = 1e12
)

var (
	// ErrInvalidCostMatrix is returned when a cost matrix is malformed
	ErrInvalidCostMatrix = errors.New("invalid cost matrix")
	// ErrInvalidAssignment is returned when a solver result is not a valid
	// bijection or selects a forbidden cell
	ErrInvalidAssignment = errors.New("invalid assignment")
)

// Solver finds the minimum cost perfect matching of a square cost matrix.
// Implementations must be deterministic so identical matrices always give
// identical assignments.
type Solver interface {
	// Solve returns assign where row i is matched to column assign[i]
	Solve(cost *mat.Dense) ([]int, error)
}

// Assignment is the interpretation of a solved augmented cost matrix
type Assignment struct {
	// Matches pairs track index [0] with instance index [1]
	Matches [][2]int
	// Missed are the track indexes matched to their own missing column
	Missed []int
	// Born are the instance indexes matched to their own new track row
	Born []int
}

// BuildCostMatrix returns the augmented (T+N)x(T+N) matrix for T tracks and
// N instances.  costs holds the T rows of N track to instance costs.  The
// top right TxT block has missCost on its diagonal, the bottom left NxN
// block has newCost on its diagonal, all other cells of those blocks are
// ForbiddenCost and the bottom right block is zero.  When T and N are both
// zero a nil matrix is returned.
func BuildCostMatrix(costs [][]float64, numInstances int, newCost,
	missCost float64) (*mat.Dense, error) {

	if numInstances < 0 {
		return nil, fmt.Errorf("%w: negative instance count %d", ErrInvalidCostMatrix,
			numInstances)
	}

	if err := checkFixedCost("new", newCost); err != nil {
		return nil, err
	}

	if err := checkFixedCost("missing", missCost); err != nil {
		return nil, err
	}

	numTracks := len(costs)
	size := numTracks + numInstances

	if size == 0 {
		return nil, nil
	}

	m := mat.NewDense(size, size, nil)

	for i, row := range costs {
		if len(row) != numInstances {
			return nil, fmt.Errorf("%w: track row %d has %d costs for %d instances",
				ErrInvalidCostMatrix, i, len(row), numInstances)
		}

		for j, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c >= ForbiddenCost {
				return nil, fmt.Errorf("%w: cost %v for track %d instance %d",
					ErrInvalidCostMatrix, c, i, j)
			}
			m.Set(i, j, c)
		}

		// missing block
		for j := 0; j < numTracks; j++ {
			if j == i {
				m.Set(i, numInstances+j, missCost)
			} else {
				m.Set(i, numInstances+j, ForbiddenCost)
			}
		}
	}

	// new track block
	for i := 0; i < numInstances; i++ {
		for j := 0; j < numInstances; j++ {
			if j == i {
				m.Set(numTracks+i, j, newCost)
			} else {
				m.Set(numTracks+i, j, ForbiddenCost)
			}
		}
	}

	return m, nil
}

// checkFixedCost validates the new and missing costs
func checkFixedCost(name string, c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c >= ForbiddenCost {
		return fmt.Errorf("%w: %s cost %v must be finite, non negative and below %v",
			ErrInvalidCostMatrix, name, c, float64(ForbiddenCost))
	}
	return nil
}

// Resolve builds the augmented matrix for the track to instance costs,
// solves it and interprets the matching
func Resolve(solver Solver, costs [][]float64, numInstances int, newCost,
	missCost float64) (Assignment, error) {

	var res Assignment

	m, err := BuildCostMatrix(costs, numInstances, newCost, missCost)
	if err != nil {
		return res, err
	}

	if m == nil {
		return res, nil
	}

	assign, err := solver.Solve(m)
	if err != nil {
		return res, err
	}

	size, _ := m.Dims()

	if err := checkPermutation(assign, size); err != nil {
		return res, err
	}

	numTracks := len(costs)

	for row, col := range assign {
		switch {
		case row < numTracks && col < numInstances:
			res.Matches = append(res.Matches, [2]int{row, col})

		case row < numTracks:
			if col-numInstances != row {
				return res, fmt.Errorf("%w: track %d assigned to missing column of track %d",
					ErrInvalidAssignment, row, col-numInstances)
			}
			res.Missed = append(res.Missed, row)

		case col < numInstances:
			if row-numTracks != col {
				return res, fmt.Errorf("%w: instance %d assigned to new row of instance %d",
					ErrInvalidAssignment, col, row-numTracks)
			}
			res.Born = append(res.Born, col)
		}
	}

	sort.Ints(res.Born)

	return res, nil
}

// validateCostMatrix checks the matrix is square, non empty and holds only
// finite non negative values.  It returns the matrix size.
func validateCostMatrix(m *mat.Dense) (int, error) {

	if m == nil || m.IsEmpty() {
		return 0, fmt.Errorf("%w: empty matrix", ErrInvalidCostMatrix)
	}

	r, c := m.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: matrix is %dx%d, not square", ErrInvalidCostMatrix, r, c)
	}

	for i := 0; i < r; i++ {
		for j, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return 0, fmt.Errorf("%w: value %v at row %d column %d",
					ErrInvalidCostMatrix, v, i, j)
			}
		}
	}

	return r, nil
}

// checkPermutation verifies assign maps n rows onto n distinct columns
func checkPermutation(assign []int, n int) error {

	if len(assign) != n {
		return fmt.Errorf("%w: %d rows assigned for a %dx%d matrix",
			ErrInvalidAssignment, len(assign), n, n)
	}

	seen := make([]bool, n)

	for row, col := range assign {
		if col < 0 || col >= n {
			return fmt.Errorf("%w: row %d assigned to column %d", ErrInvalidAssignment,
				row, col)
		}
		if seen[col] {
			return fmt.Errorf("%w: column %d assigned twice", ErrInvalidAssignment, col)
		}
		seen[col] = true
	}

	return nil
}
