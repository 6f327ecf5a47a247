package fixed

func Sum(points []Point) Point {
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum
}

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	return Sum(points).DivInt(len(points))
}

func StdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}

	return sum.DivInt(len(points)).Sqrt()
}

func SampleStdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}

	return sum.DivInt(len(points) - 1).Sqrt()
}

// PctChange returns the relative change between consecutive points. Steps whose
// previous value is zero are dropped.
func PctChange(points []Point) []Point {
	if len(points) < 2 {
		return nil
	}

	changes := make([]Point, 0, len(points)-1)
	for idx := 1; idx < len(points); idx++ {
		prev := points[idx-1]
		if prev.IsZero() {
			continue
		}
		changes = append(changes, points[idx].Div(prev).Sub(One))
	}
	return changes
}

// RunningMax returns the cumulative maximum of points.
func RunningMax(points []Point) []Point {
	out := make([]Point, len(points))
	for idx, point := range points {
		if idx == 0 || point.Gt(out[idx-1]) {
			out[idx] = point
		} else {
			out[idx] = out[idx-1]
		}
	}
	return out
}

// DownsideDeviation is the root mean square of the shortfalls below target,
// averaged over the points that fall short.
func DownsideDeviation(points []Point, target Point) Point {
	sum := Zero
	count := 0
	for _, point := range points {
		if point.Lt(target) {
			diff := point.Sub(target)
			sum = sum.Add(diff.Mul(diff))
			count++
		}
	}
	if count == 0 {
		return Zero
	}
	return sum.DivInt(count).Sqrt()
}
