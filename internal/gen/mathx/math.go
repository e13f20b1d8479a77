package mathx

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Dist2 returns the squared Euclidean distance between two integer points.
func Dist2(ax, ay, az, bx, by, bz int) int64 {
	dx := int64(ax - bx)
	dy := int64(ay - by)
	dz := int64(az - bz)
	return dx*dx + dy*dy + dz*dz
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
