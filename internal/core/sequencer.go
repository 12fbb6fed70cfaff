package core

import "fmt"

// Sequencer holds one monotonic counter. It is the point of no return for a
// command: once Apply stamps (or validates) a sequence number, the journal
// write and state apply must follow. There is no rollback.
type Sequencer struct {
	sequence SequenceNumber
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt builds a Sequencer that already considers `at` applied —
// used when a live engine picks up where a startup replay left off, so the
// first live command is stamped at+1 rather than colliding with history
// already on the journal.
func NewSequencerAt(at SequenceNumber) *Sequencer {
	return &Sequencer{sequence: at}
}

// Sequence returns the last assigned sequence number (0 before any command
// has been applied).
func (s *Sequencer) Sequence() SequenceNumber {
	return s.sequence
}

// Apply stamps msg.Sequence when it is 0 (the live path), or asserts it
// equals the expected next sequence when it is already set (the replay
// path, where journal records carry their sequence already). A mismatch
// means the journal is corrupt or out of order — that is fatal, never
// locally recoverable.
func (s *Sequencer) Apply(msg *Message) error {
	expected := s.sequence + 1
	if msg.Sequence == 0 {
		msg.Sequence = expected
	} else if msg.Sequence != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, expected, msg.Sequence)
	}
	s.sequence++
	return nil
}
