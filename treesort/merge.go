package treesort

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/exascience/pmerge/comm"
	"github.com/exascience/pmerge/internal"
	"github.com/exascience/pmerge/sequential"
	"github.com/exascience/pmerge/topology"
)

// A merge request header holds the length of the left chunk including its
// boundary element, the length of the right sub-array, the height of the
// merge, and the rank of the coordinator.
const requestFields = 4

/*
merge merges the sorted halves left and right into out, enlisting the other
ranks of node's subtree.

Only the prefix right[:finishLR+1] of elements not greater than the maximum
of left needs merging; the rest of right is appended as is. The left half
is cut into chunks, one per helper. Helper i receives its chunk preceded by
the last element of chunk i-1, so that it can find on its own which part of
the right prefix falls between the two chunk ends, together with the whole
right prefix.
*/
func (s *sorter) merge(ctx context.Context, node topology.Node, left, right, out []int64) error {
	if len(left) == 0 || len(right) == 0 {
		concat(out, left, right)
		return nil
	}
	finishLR := sequential.Search(left[len(left)-1], right)
	if finishLR < 0 {
		concat(out, left, right)
		return nil
	}
	claimed := right[:finishLR+1]

	nFree := node.Helpers(len(left))
	for i := 1; i < nFree; i++ {
		if err := s.request(ctx, node, s.rank+i, left, nFree, i, claimed); err != nil {
			return err
		}
	}

	_, high := internal.ChunkBounds(len(left), nFree, 0)
	chunk := left[:high]
	window := claimed[:sequential.Search(chunk[len(chunk)-1], claimed)+1]
	n := len(chunk) + len(window)
	sequential.Merge(out[:n], chunk, window)

	for i := 1; i < nFree; i++ {
		helper := s.rank + i
		header, err := comm.RecvExact(ctx, s.comm, helper, comm.TagInit, 1)
		if err != nil {
			return err
		}
		size := int(header.Data[0])
		if size < 0 || n+size > len(out) {
			return errors.Wrapf(comm.ErrProtocol, "rank %d: helper %d announced %d merged elements, %d left to fill",
				s.rank, helper, size, len(out)-n)
		}
		msg, err := comm.RecvExact(ctx, s.comm, helper, comm.TagAnsw, size)
		if err != nil {
			return err
		}
		n += copy(out[n:], msg.Data)
	}

	n += copy(out[n:], right[finishLR+1:])
	if n != len(out) {
		return errors.Wrapf(comm.ErrProtocol, "rank %d: merge produced %d of %d elements", s.rank, n, len(out))
	}
	return nil
}

func concat(out, left, right []int64) {
	copy(out, left)
	copy(out[len(left):], right)
}

func (s *sorter) request(ctx context.Context, node topology.Node, helper int, left []int64, nFree, i int, claimed []int64) error {
	low, high := internal.ChunkBounds(len(left), nFree, i)
	chunk := left[low-1 : high]
	glog.V(2).Infof("%d asking %d to merge %d elements", s.rank, helper, len(chunk)-1)

	header := []int64{int64(len(chunk)), int64(len(claimed)), int64(node.Height), int64(s.rank)}
	if err := s.comm.Send(ctx, helper, comm.TagInit, header); err != nil {
		return err
	}
	if err := s.comm.Send(ctx, helper, comm.TagArray1, chunk); err != nil {
		return err
	}
	return s.comm.Send(ctx, helper, comm.TagArray2, claimed)
}

// serve handles merge requests until rank 0 sends permission to terminate.
func (s *sorter) serve(ctx context.Context) error {
	for served := 0; ; served++ {
		msg, err := s.comm.Recv(ctx, comm.AnySource, comm.AnyTag)
		if err != nil {
			return err
		}
		switch msg.Tag {
		case comm.TagFini:
			glog.V(2).Infof("%d served %d merge requests", s.rank, served)
			return nil
		case comm.TagInit:
			if err := s.help(ctx, msg); err != nil {
				return err
			}
		default:
			return errors.Wrapf(comm.ErrProtocol, "rank %d: unexpected %v from rank %d while serving merge requests",
				s.rank, msg.Tag, msg.Source)
		}
	}
}

func (s *sorter) help(ctx context.Context, header comm.Message) error {
	if len(header.Data) != requestFields {
		return errors.Wrapf(comm.ErrProtocol, "rank %d: merge request from rank %d has %d fields",
			s.rank, header.Source, len(header.Data))
	}
	sizeL, sizeR := int(header.Data[0]), int(header.Data[1])
	height, coordinator := int(header.Data[2]), int(header.Data[3])
	if coordinator != header.Source || sizeL < 2 || sizeR < 1 || height < 1 {
		return errors.Wrapf(comm.ErrProtocol, "rank %d: invalid merge request %v from rank %d",
			s.rank, header.Data, header.Source)
	}

	chunk, err := comm.RecvExact(ctx, s.comm, coordinator, comm.TagArray1, sizeL)
	if err != nil {
		return err
	}
	claimed, err := comm.RecvExact(ctx, s.comm, coordinator, comm.TagArray2, sizeR)
	if err != nil {
		return err
	}

	merged := mergeChunk(chunk.Data, claimed.Data)
	glog.V(2).Infof("%d merged %d elements for %d at height %d", s.rank, len(merged), coordinator, height)
	if err := s.comm.Send(ctx, coordinator, comm.TagInit, []int64{int64(len(merged))}); err != nil {
		return err
	}
	return s.comm.Send(ctx, coordinator, comm.TagAnsw, merged)
}

// mergeChunk merges bounded[1:] with the elements of claimed that are
// greater than bounded[0] and not greater than the last element of bounded.
func mergeChunk(bounded, claimed []int64) []int64 {
	chunk := bounded[1:]
	startR := sequential.Search(bounded[0], claimed) + 1
	finishR := sequential.Search(chunk[len(chunk)-1], claimed)
	window := claimed[startR : finishR+1]

	merged := make([]int64, len(chunk)+len(window))
	sequential.Merge(merged, chunk, window)
	return merged
}
