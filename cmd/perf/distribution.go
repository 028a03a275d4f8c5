package perf

import "math"

// distribution summarizes how evenly requests were spread over the payloads
type distribution struct {
	Min         float64
	Max         float64
	Mean        float64
	StdDev      float64 // population standard deviation
	MinMaxRatio float64
	// Quality combines the coefficient of variation and the min/max ratio,
	// 1.0 means every payload was served equally often
	Quality float64
}

// newDistribution computes the distribution of the per payload counts
func newDistribution(counts map[int64]int64) distribution {
	if len(counts) == 0 {
		return distribution{MinMaxRatio: 1, Quality: 1}
	}

	d := distribution{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, c := range counts {
		v := float64(c)
		sum += v
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
	}
	d.Mean = sum / float64(len(counts))

	var sumSquaredDiffs float64
	for _, c := range counts {
		diff := float64(c) - d.Mean
		sumSquaredDiffs += diff * diff
	}
	d.StdDev = math.Sqrt(sumSquaredDiffs / float64(len(counts)))

	d.MinMaxRatio = 1
	if d.Max > 0 {
		d.MinMaxRatio = d.Min / d.Max
	}

	var cv float64
	if d.Mean > 0 {
		cv = d.StdDev / d.Mean
	}
	d.Quality = (1.0-math.Min(1.0, cv))*0.5 + d.MinMaxRatio*0.5

	return d
}
