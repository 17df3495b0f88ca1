// Package pmerge sorts large integer vectors with a tree-structured parallel
// merge sort in which the ranks of a run exchange data only by message
// passing.
//
// The work is split recursively down an implicit binary tree of ranks until
// each rank holds a partition small enough to sort sequentially. On the way
// back up, every merge of two sorted halves is spread over the ranks of the
// subtree that have already finished their own share of the work, using
// binary searches to cut the halves into independently mergeable chunks.
//
// Pmerge provides the following subpackages:
//
// pmerge/treesort provides the parallel sort, both as a single call that
// runs every rank as a goroutine and as per-rank roles for custom transports.
//
// pmerge/comm provides blocking, tag-matched message passing between ranks,
// and an in-process transport with Prometheus message counters.
//
// pmerge/topology derives parents and children in the process tree from a
// rank and a height.
//
// pmerge/sequential provides the sequential merge, boundary search, and merge
// sort that the parallel sort is built from.
//
// pmerge/parallel provides data-parallel loops over integer ranges.
//
// pmerge/workload generates shuffled input vectors and checks sorted output.
//
// The pmerge command times the parallel sort against a sequential merge sort.
package pmerge
