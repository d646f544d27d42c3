package model

import (
	"fmt"
	"math"
	"sort"
)

// probsFromOutput interprets a raw output tensor. Only a single class
// distribution (shape [1, N]) yields probabilities; any other head returns nil.
func probsFromOutput(shape []int64, data []float32, k int) (*Probs, error) {
	if len(shape) != 2 || shape[0] != 1 || shape[1] < 1 {
		return nil, nil
	}
	n := int(shape[1])
	if len(data) < n {
		return nil, fmt.Errorf("output has %d values, shape wants %d", len(data), n)
	}
	scores := data[:n]

	for i, v := range scores {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("non-finite score at class %d", i)
		}
	}
	if !isDistribution(scores) {
		scores = softmax(scores)
	}

	idx := topK(scores, k)
	conf := make([]float32, len(idx))
	for i, c := range idx {
		conf[i] = scores[c]
	}
	return &Probs{Top5: idx, Top5Conf: conf}, nil
}

// topK returns the indices of the k largest scores, highest first. Equal
// scores keep index order.
func topK(scores []float32, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return []int{}
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx[:k]
}

const distributionTolerance = 1e-3

func isDistribution(scores []float32) bool {
	var sum float64
	for _, v := range scores {
		if v < 0 || v > 1 {
			return false
		}
		sum += float64(v)
	}
	return math.Abs(sum-1) <= distributionTolerance
}

// softmax turns logits into a distribution.
func softmax(logits []float32) []float32 {
	maxV := float64(logits[0])
	for _, v := range logits[1:] {
		maxV = math.Max(maxV, float64(v))
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v) - maxV)
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
