package model

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAbsoluteError(t *testing.T) {
	assert.InDelta(t, 1.0, MeanAbsoluteError([]float64{1, 2, 3}, []float64{2, 3, 2}), 1e-12)
	assert.Equal(t, 0.0, MeanAbsoluteError(nil, nil))
}

func TestR2Score(t *testing.T) {
	assert.InDelta(t, 1.0, R2Score([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 0.0, R2Score([]float64{1, 2, 3}, []float64{2, 2, 2}), 1e-12)
	assert.Equal(t, 1.0, R2Score([]float64{4, 4}, []float64{4, 4}))
	assert.Equal(t, 0.0, R2Score([]float64{4, 4}, []float64{4, 5}))
}

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(10, 0.2, 42)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, test2 := TrainTestSplit(10, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	// ceil(0.2 * 11) = 3
	_, test = TrainTestSplit(11, 0.2, 1)
	assert.Len(t, test, 3)

	train, test = TrainTestSplit(3, 1, 1)
	assert.Len(t, train, 1)
	assert.Len(t, test, 2)
}
