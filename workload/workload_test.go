package workload

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/pmerge/sequential"
	"github.com/exascience/pmerge/treesort"
)

func TestGenerate(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	v := Generate(10000, r)
	require.Len(t, v, 10000)
	assert.False(t, IsIdentity(v))
	assert.False(t, IsSorted(v))

	sorted := append([]int64(nil), v...)
	sequential.MergeSort(sorted)
	assert.True(t, IsIdentity(sorted))
	assert.True(t, IsSorted(sorted))
	assert.True(t, SamePermutation(v, sorted))

	assert.Empty(t, Generate(0, r))
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	a := Generate(100, rand.New(rand.NewPCG(7, 7)))
	b := Generate(100, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestChecks(t *testing.T) {
	assert.True(t, IsIdentity(nil))
	assert.True(t, IsIdentity([]int64{1, 2, 3}))
	assert.False(t, IsIdentity([]int64{1, 3, 2}))
	assert.False(t, IsIdentity([]int64{2, 3, 4}))

	assert.True(t, IsSorted([]int64{5}))
	assert.True(t, IsSorted([]int64{1, 1, 2}))
	assert.False(t, IsSorted([]int64{2, 1}))

	assert.True(t, SamePermutation([]int64{1, 2, 2}, []int64{2, 1, 2}))
	assert.False(t, SamePermutation([]int64{1, 2, 2}, []int64{1, 1, 2}))
	assert.False(t, SamePermutation([]int64{1}, []int64{1, 1}))
}

func TestParallelSortOfGeneratedInput(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for _, nProc := range []int{1, 3, 4, 5} {
		org := Generate(3001, r)
		v := append([]int64(nil), org...)
		require.NoError(t, treesort.Sort(context.Background(), v, nProc))
		assert.True(t, IsIdentity(v), "nProc %v", nProc)
		assert.True(t, SamePermutation(org, v), "nProc %v", nProc)
	}
}
