// Package comm provides blocking, tag-matched message passing between the
// ranks of a sorting run.
//
// Every rank talks to the others only through its Comm endpoint. A send
// hands the transport a private copy of the payload, so the sender keeps
// ownership of its buffer and the receiver owns what it receives. A receive
// blocks until a message from the requested source with the requested tag
// is available; messages from the same source with the same tag are
// delivered in the order they were sent.
package comm

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// A Tag identifies the purpose of a message.
type Tag int

const (
	// TagInit carries a header: the length of the payload that follows,
	// or the parameters of a merge request.
	TagInit Tag = 1
	// TagData carries an unsorted vector sent down the tree.
	TagData Tag = 2
	// TagAnsw carries a sorted vector sent back up the tree, or the
	// result of a merge request.
	TagAnsw Tag = 3
	// TagFini gives a rank permission to terminate.
	TagFini Tag = 4
	// TagArray1 carries the left chunk of a merge request.
	TagArray1 Tag = 5
	// TagArray2 carries the right sub-array of a merge request.
	TagArray2 Tag = 6
)

// AnyTag matches messages with any tag in Recv.
const AnyTag Tag = -1

// AnySource matches messages from any rank in Recv.
const AnySource = -1

var tagNames = map[Tag]string{
	TagInit:   "INIT",
	TagData:   "DATA",
	TagAnsw:   "ANSW",
	TagFini:   "FINI",
	TagArray1: "ARRAY1",
	TagArray2: "ARRAY2",
	AnyTag:    "ANY",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

var (
	// ErrProtocol is returned when a message does not match what the
	// protocol requires at that point, such as a payload whose length
	// differs from its header.
	ErrProtocol = errors.New("protocol violation")

	// ErrInvalidRank is returned when a message is addressed to a rank
	// outside the run.
	ErrInvalidRank = errors.New("invalid rank")
)

// A Message is a payload received from another rank.
type Message struct {
	Source int
	Tag    Tag
	Data   []int64
}

// Comm is the endpoint of one rank.
type Comm interface {
	// Rank returns the rank of this endpoint, in [0, Size()).
	Rank() int

	// Size returns the number of ranks in the run.
	Size() int

	// Send delivers a copy of data to dest. It returns once the
	// transport has taken the message and never waits for the receiver.
	Send(ctx context.Context, dest int, tag Tag, data []int64) error

	// Recv blocks until a message from source (or AnySource) with tag (or
	// AnyTag) is available, or ctx is done.
	Recv(ctx context.Context, source int, tag Tag) (Message, error)
}

// RecvExact receives a message and checks that its payload has exactly n
// elements, as announced by a preceding header.
func RecvExact(ctx context.Context, c Comm, source int, tag Tag, n int) (Message, error) {
	msg, err := c.Recv(ctx, source, tag)
	if err != nil {
		return msg, err
	}
	if len(msg.Data) != n {
		return msg, errors.Wrapf(ErrProtocol, "rank %d: %v from rank %d has %d elements, header announced %d",
			c.Rank(), tag, msg.Source, len(msg.Data), n)
	}
	return msg, nil
}
