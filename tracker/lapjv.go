package tracker

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// rowReductionPasses is the number of augmenting row reduction passes
	// run before the remaining free rows are augmented
	rowReductionPasses = 2
)

// LAPJV solves the assignment problem with the Jonker-Volgenant algorithm
// for dense matrices.  Column reduction, reduction transfer and augmenting
// row reduction build a partial assignment with feasible column prices,
// then each remaining free row is assigned along a shortest augmenting
// path.
type LAPJV struct{}

// NewLAPJV returns a LAPJV solver
func NewLAPJV() *LAPJV {
	return &LAPJV{}
}

// Solve returns the row to column assignment of minimum total cost
func (l *LAPJV) Solve(cost *mat.Dense) ([]int, error) {

	n, err := validateCostMatrix(cost)
	if err != nil {
		return nil, err
	}

	if n == 1 {
		return []int{0}, nil
	}

	s := newJVState(cost, n)

	free := s.reduceColumns()

	for pass := 0; pass < rowReductionPasses && len(free) > 0; pass++ {
		free = s.reduceRows(free)
	}

	for _, i := range free {
		if err := s.augment(i); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidAssignment, i, err)
		}
	}

	if err := checkPermutation(s.rowCol, n); err != nil {
		return nil, err
	}

	return s.rowCol, nil
}

// jvState is the working state of one LAPJV solve.
//
// The row price of an assigned row i is cost[i][rowCol[i]] - price[rowCol[i]]
// and no column of row i has a lower reduced cost cost[i][j] - price[j].
// Every phase keeps this true, which makes the final assignment optimal.
type jvState struct {
	n    int
	cost [][]float64
	// price is the dual value of each column
	price []float64
	// rowCol is the column of each row, -1 when free
	rowCol []int
	// colRow is the row of each column, -1 when free
	colRow []int

	// shortest path scratch
	dist    []float64
	pred    []int
	settled []bool
	order   []int
}

func newJVState(cost *mat.Dense, n int) *jvState {

	s := &jvState{
		n:       n,
		cost:    make([][]float64, n),
		price:   make([]float64, n),
		rowCol:  make([]int, n),
		colRow:  make([]int, n),
		dist:    make([]float64, n),
		pred:    make([]int, n),
		settled: make([]bool, n),
		order:   make([]int, 0, n),
	}

	for i := 0; i < n; i++ {
		s.cost[i] = cost.RawRowView(i)
		s.rowCol[i] = -1
		s.colRow[i] = -1
	}

	return s
}

// reduceColumns prices every column at its cheapest row and assigns each
// row one of the columns it is cheapest for.  Rows holding the only column
// they are cheapest for then transfer their slack onto that column's price.
// It returns the rows left free.
func (s *jvState) reduceColumns() []int {

	n := s.n
	cheapest := make([]int, n)

	for j := 0; j < n; j++ {
		s.price[j] = s.cost[0][j]

		for i := 1; i < n; i++ {
			if s.cost[i][j] < s.price[j] {
				s.price[j] = s.cost[i][j]
				cheapest[j] = i
			}
		}
	}

	// columns are visited from the last so a row cheapest for several
	// columns keeps the lowest of them
	shared := make([]bool, n)

	for j := n - 1; j >= 0; j-- {
		i := cheapest[j]

		if prev := s.rowCol[i]; prev >= 0 {
			s.colRow[prev] = -1
			shared[i] = true
		}

		s.rowCol[i] = j
		s.colRow[j] = i
	}

	var free []int

	for i := 0; i < n; i++ {
		j := s.rowCol[i]

		if j < 0 {
			free = append(free, i)
			continue
		}

		if shared[i] {
			continue
		}

		// every reduced cost is non negative here, lowering the price by
		// the cheapest other column keeps row i tight on j
		slack := math.Inf(1)

		for k := 0; k < n; k++ {
			if k != j {
				slack = min(slack, s.cost[i][k]-s.price[k])
			}
		}

		s.price[j] -= slack
	}

	return free
}

// cheapestTwo returns the columns of the lowest and second lowest reduced
// cost of row i, ties go to the lower column
func (s *jvState) cheapestTwo(i int) (j1, j2 int, c1, c2 float64) {

	j1, j2 = -1, -1
	c1, c2 = math.Inf(1), math.Inf(1)

	for j := 0; j < s.n; j++ {
		c := s.cost[i][j] - s.price[j]

		switch {
		case c < c1:
			j2, c2 = j1, c1
			j1, c1 = j, c
		case c < c2:
			j2, c2 = j, c
		}
	}

	return j1, j2, c1, c2
}

// reduceRows runs one pass of augmenting row reduction.  Each free row takes
// its cheapest column.  When the second cheapest column is strictly dearer
// the taken column's price drops by the difference and the displaced row is
// processed next, on a tie the row takes the second column instead of
// displacing anyone if it is free.  It returns the rows still free.
func (s *jvState) reduceRows(free []int) []int {

	queue := append([]int(nil), free...)
	next := make([]int, 0, len(free))
	budget := s.n * len(free)

	for head, steps := 0, 0; head < len(queue); steps++ {

		i := queue[head]
		head++

		j1, j2, c1, c2 := s.cheapestTwo(i)
		col := j1
		displaced := s.colRow[j1]
		retry := false

		switch {
		case steps >= budget:
			// out of budget, the displaced row waits for the augmenting phase

		case c1 < c2:
			s.price[j1] -= c2 - c1
			retry = true

		case displaced >= 0:
			col = j2
			displaced = s.colRow[j2]
		}

		if displaced >= 0 {
			s.rowCol[displaced] = -1

			if retry {
				// reuse the slot row i was read from
				head--
				queue[head] = displaced
			} else {
				next = append(next, displaced)
			}
		}

		s.rowCol[i] = col
		s.colRow[col] = i
	}

	return next
}

// augment assigns the free row start along the shortest augmenting path.
// Dijkstra's search runs over reduced costs from start until it reaches a
// free column, then the prices of the settled columns are lowered by how
// much closer than that column they were and the path is flipped.
func (s *jvState) augment(start int) error {

	n := s.n

	for j := 0; j < n; j++ {
		s.dist[j] = s.cost[start][j] - s.price[j]
		s.pred[j] = start
		s.settled[j] = false
	}

	s.order = s.order[:0]

	end := -1
	reach := 0.0

	for end < 0 {

		// the closest unsettled column, a free column wins a tie
		j := -1

		for k := 0; k < n; k++ {
			if s.settled[k] {
				continue
			}

			if j < 0 || s.dist[k] < s.dist[j] ||
				(s.dist[k] == s.dist[j] && s.colRow[k] < 0 && s.colRow[j] >= 0) {
				j = k
			}
		}

		if j < 0 {
			return errors.New("no free column reachable")
		}

		reach = s.dist[j]

		if s.colRow[j] < 0 {
			end = j
			break
		}

		s.settled[j] = true
		s.order = append(s.order, j)

		// continue the path through the row holding column j
		i := s.colRow[j]
		offset := reach - (s.cost[i][j] - s.price[j])

		for k := 0; k < n; k++ {
			if s.settled[k] {
				continue
			}

			if d := s.cost[i][k] - s.price[k] + offset; d < s.dist[k] {
				s.dist[k] = d
				s.pred[k] = i
			}
		}
	}

	for _, j := range s.order {
		s.price[j] += s.dist[j] - reach
	}

	for steps := 0; steps < n; steps++ {
		i := s.pred[end]
		s.colRow[end] = i
		end, s.rowCol[i] = s.rowCol[i], end

		if i == start {
			return nil
		}
	}

	return errors.New("augmenting path longer than the matrix")
}
