package document

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// ReplicaID identifies the replica that created a document.
type ReplicaID uint16

// LocalReplica is the replica of documents created in this process.
const LocalReplica ReplicaID = 0

// ID identifies a document. IDs are immutable and totally ordered.
type ID struct {
	Remote  uuid.UUID
	Replica ReplicaID
}

// NewID returns a fresh random ID for the given replica.
func NewID(replica ReplicaID) ID {
	return ID{Remote: uuid.New(), Replica: replica}
}

// Compare orders IDs by remote id bytes, then replica.
func (id ID) Compare(other ID) int {
	if c := bytes.Compare(id.Remote[:], other.Remote[:]); c != 0 {
		return c
	}
	switch {
	case id.Replica < other.Replica:
		return -1
	case id.Replica > other.Replica:
		return 1
	}
	return 0
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool {
	return id.Remote == uuid.Nil && id.Replica == 0
}

// String returns "remote/replica".
func (id ID) String() string {
	return fmt.Sprintf("%s/%d", id.Remote, id.Replica)
}
