package postprocess

import (
	"container/heap"

	"gonum.org/v1/gonum/mat"
)

// floodItem is a pixel waiting in the watershed priority queue
type floodItem struct {
	height float64
	age    uint64
	index  int
}

// floodQueue orders pixels by height then by insertion age so that equal
// heights are flooded first in first out
type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].height != q[j].height {
		return q[i].height < q[j].height
	}
	return q[i].age < q[j].age
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x any) { *q = append(*q, x.(floodItem)) }

func (q *floodQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// watershed floods heightmap from the labeled markers restricted to the set
// pixels of mask.  Marker pixels outside of mask are ignored.  Mask pixels
// not reachable from any marker keep label 0.
func watershed(heightmap *mat.Dense, markers []int, mask []uint8) []int {

	rows, cols := heightmap.Dims()
	labels := make([]int, rows*cols)

	q := make(floodQueue, 0, rows*cols/4)
	var age uint64

	for i, m := range markers {
		if m == 0 || mask[i] == 0 {
			continue
		}

		labels[i] = m
		q = append(q, floodItem{
			height: heightmap.At(i/cols, i%cols),
			age:    age,
			index:  i,
		})
		age++
	}

	heap.Init(&q)

	for q.Len() > 0 {
		item := heap.Pop(&q).(floodItem)
		x := item.index % cols
		y := item.index / cols

		for _, j := range neighbours4(x, y, cols, rows) {
			if j < 0 || mask[j] == 0 || labels[j] != 0 {
				continue
			}

			labels[j] = labels[item.index]
			heap.Push(&q, floodItem{
				height: heightmap.At(j/cols, j%cols),
				age:    age,
				index:  j,
			})
			age++
		}
	}

	return labels
}

// recoverOrphans labels the 4-connected regions of mask pixels left
// unlabeled by the flood with new labels above the current maximum so that
// no mask pixel is dropped.  It returns the number of recovered regions.
func recoverOrphans(labels []int, mask []uint8, width, height int) int {

	orphan := make([]uint8, len(labels))
	found := false

	for i, m := range mask {
		if m != 0 && labels[i] == 0 {
			orphan[i] = 1
			found = true
		}
	}

	if !found {
		return 0
	}

	max := 0
	for _, l := range labels {
		if l > max {
			max = l
		}
	}

	extra, n := connectedComponents(orphan, width, height)

	for i, l := range extra {
		if l > 0 {
			labels[i] = l + max
		}
	}

	return n
}
