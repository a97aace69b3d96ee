package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPointsBatches(t *testing.T) {
	t.Parallel()

	in := "# x,y\n10,10\n20, 20\n\n25,25,1\n-10,-10\n5,45\n"
	var batches [][][]float64
	err := readPoints(strings.NewReader(in), 2, func(b [][]float64) error {
		batches = append(batches, b)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, [][]float64{{10, 10}, {20, 20}}, batches[0])
	assert.Equal(t, [][]float64{{25, 25, 1}, {-10, -10}}, batches[1])
	assert.Equal(t, [][]float64{{5, 45}}, batches[2])
}

func TestReadPointsErrors(t *testing.T) {
	t.Parallel()

	noop := func([][]float64) error { return nil }
	assert.Error(t, readPoints(strings.NewReader("1\n"), 10, noop))
	assert.Error(t, readPoints(strings.NewReader("1,2,3,4\n"), 10, noop))
	assert.Error(t, readPoints(strings.NewReader("a,b\n"), 10, noop))

	boom := errors.New("boom")
	err := readPoints(strings.NewReader("1,2\n"), 10, func([][]float64) error { return boom })
	assert.ErrorIs(t, err, boom)
}
