package analysis

import (
	"math"
)

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// sampleStdDev is the n-1 standard deviation; undefined below two values.
func sampleStdDev(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	mean := average(values)
	sq := 0.0
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return ptr(math.Sqrt(sq / float64(len(values)-1)))
}

// mean returns nil for an empty series so absent data never reads as zero.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return ptr(average(values))
}

func maxOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return ptr(maxValue(values))
}

// diff returns a-b when both are known.
func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(*a - *b)
}

// ratio returns a/b when both are known and b is non-zero.
func ratio(a, b *float64) *float64 {
	if a == nil || b == nil || *b == 0 {
		return nil
	}
	return ptr(*a / *b)
}

func ptr(v float64) *float64 {
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
