package treesort

import (
	"context"
	"slices"

	"github.com/golang/glog"

	"github.com/exascience/pmerge/comm"
	"github.com/exascience/pmerge/sequential"
	"github.com/exascience/pmerge/topology"
)

// partition sorts vector in place as the node of s.rank at height. A leaf
// sorts locally, a half-full node descends without messaging, and a full
// node splits the vector with its right child. The sorted vector is then
// sent to the parent unless this rank is its own parent.
func (s *sorter) partition(ctx context.Context, vector []int64, height int) error {
	node := topology.New(s.rank, height, s.size)
	if node.IsLeaf() {
		glog.V(2).Infof("%d leaf sorting %d elements", s.rank, len(vector))
		sequential.MergeSort(vector)
	} else if child, ok := node.RightChild(); !ok {
		if err := s.partition(ctx, vector, height-1); err != nil {
			return err
		}
	} else if err := s.split(ctx, node, child, vector); err != nil {
		return err
	}

	if parent := node.Parent(); parent != s.rank {
		glog.V(2).Infof("%d returning %d elements to %d", s.rank, len(vector), parent)
		return s.comm.Send(ctx, parent, comm.TagAnsw, vector)
	}
	return nil
}

func (s *sorter) split(ctx context.Context, node topology.Node, child int, vector []int64) error {
	half := len(vector) / 2
	left := slices.Clone(vector[:half])
	right := vector[half:]

	glog.V(2).Infof("%d sending %d elements to %d", s.rank, len(right), child)
	header := []int64{int64(len(right)), int64(node.Height - 1)}
	if err := s.comm.Send(ctx, child, comm.TagInit, header); err != nil {
		return err
	}
	if err := s.comm.Send(ctx, child, comm.TagData, right); err != nil {
		return err
	}

	if err := s.partition(ctx, left, node.Height-1); err != nil {
		return err
	}

	glog.V(2).Infof("%d waiting for data from %d", s.rank, child)
	msg, err := comm.RecvExact(ctx, s.comm, child, comm.TagAnsw, len(right))
	if err != nil {
		return err
	}
	return s.merge(ctx, node, left, msg.Data, vector)
}
