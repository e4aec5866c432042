package model

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
)

var ErrClassCount = errors.New("class count mismatch")

// ArgMax returns the index of the largest score. Ties keep the lowest index.
// It returns -1 for no scores.
func ArgMax(scores []int8) int {
	if len(scores) == 0 {
		return -1
	}
	maxIdx := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Decide maps the arg-max of output onto labels. The output must carry
// exactly one score per label.
func Decide(output *engine.Tensor, labels []string) (*Prediction, error) {
	scores := output.Int8s()
	if len(scores) != len(labels) || len(labels) == 0 {
		return nil, fmt.Errorf("%w: output has %d scores, %d labels", ErrClassCount, len(scores), len(labels))
	}

	idx := ArgMax(scores)
	predictions := make(map[string]int8, len(labels))
	for i, label := range labels {
		predictions[label] = scores[i]
	}
	return &Prediction{
		Index:       idx,
		Class:       labels[idx],
		Score:       scores[idx],
		Predictions: predictions,
	}, nil
}
