package message

import "fmt"

// UnknownGroupSize marks a split whose total part count is not known up front
const UnknownGroupSize = -1

// Correlation links a split part back to its origin. It is a value type: setters
// return a new Correlation and never mutate the receiver.
//
// Zero fields mean "not set": an empty id, a group size of 0 and a sequence
// number of 0. Sequence numbers are 1-based.
type Correlation struct {
	id             string
	groupSize      int
	sequenceNumber int
}

// NewCorrelation builds a Correlation from its three parts
func NewCorrelation(id string, groupSize, sequenceNumber int) Correlation {
	return Correlation{id: id, groupSize: groupSize, sequenceNumber: sequenceNumber}
}

// ID returns the correlation id, or "" when unset
func (c Correlation) ID() string { return c.id }

// HasID reports whether a correlation id is set
func (c Correlation) HasID() bool { return c.id != "" }

// GroupSize returns the raw group size: 0 when unset, UnknownGroupSize when the
// split size was not known
func (c Correlation) GroupSize() int { return c.groupSize }

// HasGroupSize reports whether a known, positive group size is set
func (c Correlation) HasGroupSize() bool { return c.groupSize > 0 }

// IsGroupSizeUnknown reports whether the part came from a sequence of unknown size
func (c Correlation) IsGroupSizeUnknown() bool { return c.groupSize == UnknownGroupSize }

// SequenceNumber returns the 1-based position of the part, or 0 when unset
func (c Correlation) SequenceNumber() int { return c.sequenceNumber }

// HasSequenceNumber reports whether a sequence number is set
func (c Correlation) HasSequenceNumber() bool { return c.sequenceNumber > 0 }

// IsZero reports whether nothing is set
func (c Correlation) IsZero() bool { return c == Correlation{} }

// WithID returns a copy with the given id
func (c Correlation) WithID(id string) Correlation {
	c.id = id
	return c
}

// WithGroup returns a copy with the given group size and sequence number
func (c Correlation) WithGroup(groupSize, sequenceNumber int) Correlation {
	c.groupSize = groupSize
	c.sequenceNumber = sequenceNumber
	return c
}

func (c Correlation) String() string {
	size := "unset"
	switch {
	case c.IsGroupSizeUnknown():
		size = "unknown"
	case c.HasGroupSize():
		size = fmt.Sprintf("%d", c.groupSize)
	}
	return fmt.Sprintf("correlation{id=%q, group=%s, seq=%d}", c.id, size, c.sequenceNumber)
}
