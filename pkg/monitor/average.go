package monitor

// Average returns the mean raw value of the last n points, or of all points
// when n is not positive.
func Average(points []Point, n int) float32 {
	if n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	if len(points) == 0 {
		return 0
	}

	var sum uint64
	for _, p := range points {
		sum += uint64(p.Value)
	}
	return float32(sum) / float32(len(points))
}

// Downsample reduces points to at most maxPoints by decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise
// allocates a new slice.
func Downsample(dst []Point, points []Point, maxPoints int) []Point {
	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(points) {
			dst = append(dst, points[idx])
		}
	}

	return dst
}
