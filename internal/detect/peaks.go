package detect

import "sort"

// FindPeaks returns indices of local maxima of x strictly above height,
// then drops peaks closer than distance to a higher one. A flat top counts
// once, at its middle index (rounded down). Equal heights favour the
// earlier index. The result is ascending.
func FindPeaks(x []float64, height float64, distance int) []int {
	var peaks []int
	for i := 1; i < len(x)-1; {
		if x[i] <= x[i-1] {
			i++
			continue
		}
		j := i
		for j+1 < len(x) && x[j+1] == x[i] {
			j++
		}
		if j+1 < len(x) && x[j+1] < x[i] && x[i] > height {
			peaks = append(peaks, (i+j)/2)
		}
		i = j + 1
	}
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}
	return suppressNear(x, peaks, distance)
}

func suppressNear(x []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] > x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for _, idx := range order {
		if !keep[idx] {
			continue
		}
		for k := idx - 1; k >= 0 && peaks[idx]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := idx + 1; k < len(peaks) && peaks[k]-peaks[idx] < distance; k++ {
			keep[k] = false
		}
	}

	out := peaks[:0:0]
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}
