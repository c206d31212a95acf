package tfidf

import "math"

// TF returns count / total, or 0 when total is zero.
func TF(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// IDF returns the unsmoothed inverse document frequency
//
//	IDF(t) = log(N / df(t))
//
// Where:
//   - N = number of groups
//   - df(t) = number of groups containing t at least once
//
// A term present in every group has IDF 0. A term present in no group has no
// defined IDF; 0 is returned.
func IDF(df, n int) float64 {
	if df <= 0 || n <= 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df))
}

// entropy returns the Shannon entropy of counts normalized to [0,1] by the
// maximum entropy over buckets outcomes.
func entropy(counts []int64, buckets int) float64 {
	if buckets < 2 {
		return 0
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h / math.Log(float64(buckets))
}
