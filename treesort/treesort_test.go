package treesort

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/exascience/pmerge/comm"
	"github.com/exascience/pmerge/topology"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
		goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"),
	)
}

func makePermutation(size int, r *rand.Rand) []int64 {
	result := make([]int64, size)
	for i := range result {
		result[i] = int64(i + 1)
	}
	r.Shuffle(size, func(i, j int) { result[i], result[j] = result[j], result[i] })
	return result
}

func sorted(v []int64) []int64 {
	result := append([]int64{}, v...)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func TestSortExample(t *testing.T) {
	data := []int64{5, 3, 1, 4, 2}
	require.NoError(t, Sort(context.Background(), data, 4))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, data)
}

func TestSortProcessCounts(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, size := range []int{0, 1, 2, 3, 5, 17, 100, 1000, 10007} {
		org := makePermutation(size, r)
		want := sorted(org)
		for nProc := 1; nProc <= 9; nProc++ {
			data := append([]int64{}, org...)
			require.NoError(t, Sort(context.Background(), data, nProc), "size %v nProc %v", size, nProc)
			assert.Equal(t, want, data, "size %v nProc %v", size, nProc)
		}
	}
}

func TestSortSameOutputForNonPowersOfTwo(t *testing.T) {
	org := makePermutation(4099, rand.New(rand.NewSource(2)))
	var results [][]int64
	for _, nProc := range []int{1, 3, 4, 5} {
		data := append([]int64{}, org...)
		require.NoError(t, Sort(context.Background(), data, nProc))
		results = append(results, data)
	}
	for _, result := range results[1:] {
		assert.Equal(t, results[0], result)
	}
	for k, v := range results[0] {
		require.Equal(t, int64(k+1), v)
	}
}

func TestSortDuplicates(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, nProc := range []int{2, 5, 8} {
		data := make([]int64, 5000)
		for i := range data {
			data[i] = r.Int63n(40) - 20
		}
		want := sorted(data)
		require.NoError(t, Sort(context.Background(), data, nProc))
		assert.Equal(t, want, data, "nProc %v", nProc)
	}
}

func TestSortSortedInputDispatchesNoChunks(t *testing.T) {
	m := comm.NewMetrics(nil)
	data := makePermutation(1000, rand.New(rand.NewSource(4)))
	data = sorted(data)
	require.NoError(t, Sort(context.Background(), data, 8, WithMetrics(m)))

	for _, tag := range []comm.Tag{comm.TagArray1, comm.TagArray2} {
		messages, _ := m.Count(tag)
		assert.Zero(t, messages, "%v", tag)
	}
	messages, elements := m.Count(comm.TagData)
	assert.Equal(t, int64(7), messages)
	assert.Equal(t, int64(3*500), elements)
	messages, _ = m.Count(comm.TagFini)
	assert.Equal(t, int64(7), messages)
}

func TestSortReversedInputUsesHelpers(t *testing.T) {
	m := comm.NewMetrics(nil)
	data := make([]int64, 64)
	for i := range data {
		data[i] = int64(len(data) - i)
	}
	require.NoError(t, Sort(context.Background(), data, 4, WithMetrics(m)))
	assert.Equal(t, int64(1), data[0])
	assert.Equal(t, int64(64), data[63])

	// One helper at each height-1 merge, three at the root.
	messages, _ := m.Count(comm.TagArray1)
	assert.Equal(t, int64(5), messages)
}

func TestSortInvalidProcessCount(t *testing.T) {
	assert.Error(t, Sort(context.Background(), []int64{1}, 0))
}

func TestMergeDegenerate(t *testing.T) {
	m := comm.NewMetrics(nil)
	w := comm.NewWorld(4, comm.WithMetrics(m))
	s := newSorter(w.Comm(0))

	out := make([]int64, 5)
	require.NoError(t, s.merge(context.Background(), topology.New(0, 2, 4),
		[]int64{1, 2}, []int64{3, 4, 5}, out))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, out)

	out = make([]int64, 3)
	require.NoError(t, s.merge(context.Background(), topology.New(0, 2, 4),
		nil, []int64{3, 4, 5}, out))
	assert.Equal(t, []int64{3, 4, 5}, out)

	for _, tag := range []comm.Tag{comm.TagInit, comm.TagArray1, comm.TagArray2} {
		messages, _ := m.Count(tag)
		assert.Zero(t, messages, "%v", tag)
	}
}

func TestMergeWithHelpers(t *testing.T) {
	ctx := context.Background()
	m := comm.NewMetrics(nil)
	w := comm.NewWorld(4, comm.WithMetrics(m))

	errs := make(chan error, 3)
	for rank := 1; rank < 4; rank++ {
		helper := newSorter(w.Comm(rank))
		go func() { errs <- helper.serve(ctx) }()
	}

	s := newSorter(w.Comm(0))
	left := []int64{1, 3, 5, 7, 9, 11, 15}
	right := []int64{2, 4, 6, 8, 10, 12, 13, 14, 16, 17}
	out := make([]int64, len(left)+len(right))
	require.NoError(t, s.merge(ctx, topology.New(0, 2, 4), left, right, out))
	assert.Equal(t, sorted(append(append([]int64{}, left...), right...)), out)

	for rank := 1; rank < 4; rank++ {
		require.NoError(t, s.comm.Send(ctx, rank, comm.TagFini, nil))
	}
	for rank := 1; rank < 4; rank++ {
		assert.NoError(t, <-errs)
	}

	messages, elements := m.Count(comm.TagArray1)
	assert.Equal(t, int64(3), messages)
	assert.Equal(t, int64(2+2+5), elements)
	messages, elements = m.Count(comm.TagArray2)
	assert.Equal(t, int64(3), messages)
	assert.Equal(t, int64(3*8), elements)
}

func TestMergeChunk(t *testing.T) {
	claimed := []int64{2, 4, 6, 8, 10}
	assert.Equal(t, []int64{4, 5, 6, 7}, mergeChunk([]int64{3, 5, 7}, claimed))
	assert.Equal(t, []int64{10, 11}, mergeChunk([]int64{9, 11}, claimed))
	assert.Equal(t, []int64{1}, mergeChunk([]int64{0, 1}, claimed))
	assert.Equal(t, []int64{3, 4, 4}, mergeChunk([]int64{2, 3, 4}, claimed))
}

func TestNodeRejectsShortPayload(t *testing.T) {
	ctx := context.Background()
	w := comm.NewWorld(2)
	root := w.Comm(0)
	require.NoError(t, root.Send(ctx, 1, comm.TagInit, []int64{3, 0}))
	require.NoError(t, root.Send(ctx, 1, comm.TagData, []int64{1, 2}))
	assert.ErrorIs(t, Node(ctx, w.Comm(1)), comm.ErrProtocol)
}

func TestNodeRejectsWrongParent(t *testing.T) {
	ctx := context.Background()
	w := comm.NewWorld(4)
	require.NoError(t, w.Comm(2).Send(ctx, 1, comm.TagInit, []int64{1, 0}))
	assert.ErrorIs(t, Node(ctx, w.Comm(1)), comm.ErrProtocol)
}

func TestServeRejectsUnexpectedMessages(t *testing.T) {
	ctx := context.Background()
	w := comm.NewWorld(3)

	require.NoError(t, w.Comm(0).Send(ctx, 1, comm.TagData, []int64{1}))
	assert.ErrorIs(t, newSorter(w.Comm(1)).serve(ctx), comm.ErrProtocol)

	require.NoError(t, w.Comm(0).Send(ctx, 2, comm.TagInit, []int64{2, 1, 1, 1}))
	assert.ErrorIs(t, newSorter(w.Comm(2)).serve(ctx), comm.ErrProtocol)
}

func TestNodeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	w := comm.NewWorld(2)
	assert.ErrorIs(t, Node(ctx, w.Comm(1)), context.DeadlineExceeded)
}

func TestRootAndNodeRoles(t *testing.T) {
	w := comm.NewWorld(2)
	assert.Error(t, Root(context.Background(), w.Comm(1), nil))
	assert.Error(t, Node(context.Background(), w.Comm(0)))
}

func BenchmarkSort(b *testing.B) {
	orgSlice := makePermutation(100*0x6000, rand.New(rand.NewSource(5)))
	s := make([]int64, len(orgSlice))

	for _, nProc := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("nProc=%d", nProc), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				copy(s, orgSlice)
				b.StartTimer()
				if err := Sort(context.Background(), s, nProc); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
