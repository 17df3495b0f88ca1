// Package topology derives the implicit binary process tree from a flat rank
// space.
//
// A rank with height h owns the subtree of ranks [rank, rank+2^h). Its right
// child at that height is the rank that owns the upper half of the subtree,
// and its parent is the rank that owns the enclosing subtree one level up.
// When the process count is not a power of two, some right children do not
// exist; such nodes are half full and their owner simply descends a level
// without exchanging any messages.
package topology

import "fmt"

// RootHeight returns the smallest h such that 2^h >= nProc.
func RootHeight(nProc int) int {
	if nProc < 1 {
		panic(fmt.Sprintf("invalid process count: %v", nProc))
	}
	height, nodes := 0, 1
	for nodes < nProc {
		nodes += nodes
		height++
	}
	return height
}

// A Resolver reports the neighbours of a node in the process tree.
type Resolver interface {
	Parent() int
	RightChild() (rank int, ok bool)
}

// A Node is the position of a rank at one height of the process tree. Nodes
// are cheap values; compute a new one for every recursion level.
type Node struct {
	Rank   int // linear rank in [0, Size)
	Height int // remaining depth; 0 is a leaf
	Size   int // number of ranks in the run
}

// New returns the node of rank at height in a run of size ranks.
func New(rank, height, size int) Node {
	if rank < 0 || rank >= size || height < 0 {
		panic(fmt.Sprintf("invalid tree node: rank %v, height %v, size %v", rank, height, size))
	}
	return Node{Rank: rank, Height: height, Size: size}
}

// Parent returns the rank that receives this node's sorted result. It equals
// Rank when the node is the left spine of its parent's subtree, in which case
// the result is already in place.
func (n Node) Parent() int {
	return n.Rank &^ (1 << uint(n.Height))
}

// RightChild returns the rank that sorts the right half of this node's
// vector, and whether that rank exists in the run.
func (n Node) RightChild() (rank int, ok bool) {
	if n.Height == 0 {
		return n.Rank, false
	}
	rank = n.Rank | 1<<uint(n.Height-1)
	return rank, rank < n.Size
}

// IsLeaf reports whether n is at height 0.
func (n Node) IsLeaf() bool {
	return n.Height == 0
}

// Descend returns the same rank one level closer to the leaves.
func (n Node) Descend() Node {
	if n.Height == 0 {
		panic("cannot descend below a leaf")
	}
	n.Height--
	return n
}

// Helpers returns the number of ranks, the coordinator included, that merge
// a left half of leftLen elements at this node: one per rank of the subtree
// that exists, but never more than there are left elements to hand out.
func (n Node) Helpers(leftLen int) int {
	free := 1 << uint(n.Height)
	if rest := n.Size - n.Rank; rest < free {
		free = rest
	}
	if leftLen < free {
		free = leftLen
	}
	if free < 1 {
		free = 1
	}
	return free
}

func (n Node) String() string {
	return fmt.Sprintf("rank %v at height %v of %v", n.Rank, n.Height, n.Size)
}
