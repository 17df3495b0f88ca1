/*
Package treesort sorts a vector across the ranks of a comm.Comm arranged as
an implicit binary tree.

Rank 0 holds the input. Each rank that owns a subtree ships the right half of
its vector to the rank owning the upper half of the subtree, sorts the left
half one level closer to the leaves, and merges the two sorted halves once
the right half comes back. At the leaves a sequential merge sort does the
work.

Merging is load balanced: the ranks of a subtree have all returned their
results by the time its owner merges, so the owner cuts its left half into
one chunk per rank of the subtree, sends each helper a chunk together with
the part of the right half it may need, merges the first chunk itself and
concatenates the results in chunk order. Ranks serve merge requests until
rank 0 gives them permission to terminate.
*/
package treesort

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/exascience/pmerge/comm"
	"github.com/exascience/pmerge/internal"
	"github.com/exascience/pmerge/topology"
)

type options struct {
	metrics *comm.Metrics
}

// An Option configures Sort.
type Option func(*options)

// WithMetrics counts the messages exchanged by Sort.
func WithMetrics(m *comm.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

/*
Sort sorts data in increasing order using nProc ranks that run as
goroutines of the calling process and communicate through a comm.World.

Sort returns only when every rank has terminated. If one rank fails, the
context of all other ranks is cancelled and Sort returns the first error;
the contents of data are then unspecified. A panic in a rank is recovered
and returned as an error that includes the stack trace.
*/
func Sort(ctx context.Context, data []int64, nProc int, opts ...Option) error {
	if nProc < 1 {
		return errors.Errorf("invalid process count: %d", nProc)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	world := comm.NewWorld(nProc, comm.WithMetrics(o.metrics))

	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < nProc; rank++ {
		c := world.Comm(rank)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = errors.Wrapf(internal.PanicError(p), "rank %d", c.Rank())
				}
			}()
			var vector []int64
			if c.Rank() == 0 {
				vector = data
			}
			return Run(ctx, c, vector)
		})
	}
	return g.Wait()
}

// Run plays the role of c's rank in a sorting run: Root for rank 0, Node for
// every other rank. The vector is only used by rank 0.
func Run(ctx context.Context, c comm.Comm, vector []int64) error {
	if c.Rank() == 0 {
		return Root(ctx, c, vector)
	}
	return Node(ctx, c)
}

// Root sorts vector in place as rank 0 of c, and then gives every other rank
// permission to terminate.
func Root(ctx context.Context, c comm.Comm, vector []int64) error {
	s := newSorter(c)
	if s.rank != 0 {
		return errors.Errorf("rank %d cannot be the root", s.rank)
	}
	height := topology.RootHeight(s.size)
	glog.V(1).Infof("%d processes mandates root height of %d", s.size, height)

	if err := s.partition(ctx, vector, height); err != nil {
		return err
	}
	for rank := 1; rank < s.size; rank++ {
		if err := s.comm.Send(ctx, rank, comm.TagFini, nil); err != nil {
			return err
		}
	}
	return nil
}

// Node receives a vector from its parent in the process tree, sorts it,
// returns it, and then serves merge requests until rank 0 gives permission
// to terminate.
func Node(ctx context.Context, c comm.Comm) error {
	s := newSorter(c)
	if s.rank == 0 {
		return errors.New("rank 0 is the root")
	}
	header, err := comm.RecvExact(ctx, c, comm.AnySource, comm.TagInit, 2)
	if err != nil {
		return err
	}
	size, height := int(header.Data[0]), int(header.Data[1])
	if size < 0 || height < 0 || topology.New(s.rank, height, s.size).Parent() != header.Source {
		return errors.Wrapf(comm.ErrProtocol, "rank %d: invalid vector header %v from rank %d",
			s.rank, header.Data, header.Source)
	}
	msg, err := comm.RecvExact(ctx, c, header.Source, comm.TagData, size)
	if err != nil {
		return err
	}
	if err := s.partition(ctx, msg.Data, height); err != nil {
		return err
	}
	if err := s.serve(ctx); err != nil {
		return err
	}
	glog.V(2).Infof("%d resigning", s.rank)
	return nil
}

type sorter struct {
	comm comm.Comm
	rank int
	size int
}

func newSorter(c comm.Comm) *sorter {
	return &sorter{comm: c, rank: c.Rank(), size: c.Size()}
}
