package tracker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Hungarian solves the assignment problem with the Kuhn-Munkres algorithm
// using row and column potentials in O(n^3)
type Hungarian struct{}

// NewHungarian returns a Hungarian solver
func NewHungarian() *Hungarian {
	return &Hungarian{}
}

// Solve returns the row to column assignment of minimum total cost
func (h *Hungarian) Solve(cost *mat.Dense) ([]int, error) {

	dim, err := validateCostMatrix(cost)
	if err != nil {
		return nil, err
	}

	// 1-indexed arrays internally for cleaner index arithmetic
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1) // row potentials
	v := make([]float64, dim+1) // column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0 // virtual column

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				return nil, fmt.Errorf("%w: no augmenting column for row %d",
					ErrInvalidAssignment, i-1)
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// augment along the path
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}

	for j := 1; j <= dim; j++ {
		if p[j] > 0 {
			rowAssign[p[j]-1] = j - 1
		}
	}

	return rowAssign, nil
}
