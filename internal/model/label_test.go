package model

import (
	"testing"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var labels = []string{"cebollas", "limon", "papas"}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		scores []int8
		want   int
	}{
		{"first", []int8{100, -3, 7}, 0},
		{"second", []int8{-128, 0, -1}, 1},
		{"third", []int8{1, 2, 127}, 2},
		{"tie resolves low", []int8{5, 5, 3}, 0},
		{"tie among later", []int8{-9, 4, 4}, 1},
		{"all equal", []int8{-128, -128, -128}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := engine.NewTensor("output", []int{1, 3}, tt.scores)
			p, err := Decide(out, labels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Index)
			assert.Equal(t, labels[tt.want], p.Class)
			assert.Equal(t, tt.scores[tt.want], p.Score)
			assert.Len(t, p.Predictions, 3)
		})
	}
}

func TestDecideClassCountMismatch(t *testing.T) {
	out := engine.NewTensor("output", []int{1, 4}, []int8{1, 2, 3, 4})
	_, err := Decide(out, labels)
	require.ErrorIs(t, err, ErrClassCount)
}

func TestArgMaxEmpty(t *testing.T) {
	assert.Equal(t, -1, ArgMax(nil))
}
