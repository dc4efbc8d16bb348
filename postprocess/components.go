package postprocess

// connectedComponents labels the 4-connected regions of set pixels in mask.
// Labels are numbered 1..n in raster order of each region's first pixel.
func connectedComponents(mask []uint8, width, height int) ([]int, int) {

	labels := make([]int, width*height)
	queue := make([]int, 0, 64)
	n := 0

	for start, v := range mask {
		if v == 0 || labels[start] != 0 {
			continue
		}

		n++
		labels[start] = n
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			x := i % width
			y := i / width

			for _, j := range neighbours4(x, y, width, height) {
				if j >= 0 && mask[j] != 0 && labels[j] == 0 {
					labels[j] = n
					queue = append(queue, j)
				}
			}
		}
	}

	return labels, n
}

// neighbours4 returns the flat indexes of the 4-connected neighbours of x,y
// with -1 for those outside of the image
func neighbours4(x, y, width, height int) [4]int {

	nb := [4]int{-1, -1, -1, -1}
	i := y*width + x

	if y > 0 {
		nb[0] = i - width
	}
	if x > 0 {
		nb[1] = i - 1
	}
	if x < width-1 {
		nb[2] = i + 1
	}
	if y < height-1 {
		nb[3] = i + width
	}

	return nb
}
