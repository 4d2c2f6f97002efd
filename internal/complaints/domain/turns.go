package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTurnNotFound is returned when a turn id does not belong to the sequence.
	ErrTurnNotFound = errors.New("conversation turn not found")
	// ErrTurnAnswered is returned when an answer is submitted for a turn that
	// already has one.
	ErrTurnAnswered = errors.New("conversation turn already answered")
)

// ConversationTurn is a single question/answer exchange in the clarification
// dialogue. A turn is pending until AnsweredAt is set.
type ConversationTurn struct {
	ID              uuid.UUID
	Question        string
	Answer          string
	Templated       bool
	ExtractedInfo   map[string]string
	ConfidenceDelta float64
	AskedAt         time.Time
	AnsweredAt      *time.Time
}

// Answered reports whether the customer has responded to this turn.
func (t ConversationTurn) Answered() bool {
	return t.AnsweredAt != nil
}

// NewTurn creates a pending turn for a freshly generated question.
func NewTurn(question string, templated bool, askedAt time.Time) ConversationTurn {
	return ConversationTurn{
		ID:        uuid.New(),
		Question:  question,
		Templated: templated,
		AskedAt:   askedAt,
	}
}

// TurnSequence holds the dialogue turns in ask order with an id lookup so
// answer submission stays O(1) regardless of dialogue length.
type TurnSequence struct {
	turns []ConversationTurn
	index map[uuid.UUID]int
}

// NewTurnSequence builds a sequence from persisted turns, preserving order.
func NewTurnSequence(turns []ConversationTurn) TurnSequence {
	s := TurnSequence{
		turns: make([]ConversationTurn, 0, len(turns)),
		index: make(map[uuid.UUID]int, len(turns)),
	}
	for _, t := range turns {
		s.Append(t)
	}
	return s
}

// Append adds a turn to the end of the sequence.
func (s *TurnSequence) Append(t ConversationTurn) {
	if s.index == nil {
		s.index = make(map[uuid.UUID]int)
	}
	s.index[t.ID] = len(s.turns)
	s.turns = append(s.turns, t)
}

// Get returns the turn with the given id.
func (s *TurnSequence) Get(id uuid.UUID) (ConversationTurn, bool) {
	i, ok := s.index[id]
	if !ok {
		return ConversationTurn{}, false
	}
	return s.turns[i], true
}

// Pending returns the unanswered turn, if any. The dialogue engine never
// leaves more than one turn unanswered, so the first hit is the only one.
func (s *TurnSequence) Pending() (ConversationTurn, bool) {
	for _, t := range s.turns {
		if !t.Answered() {
			return t, true
		}
	}
	return ConversationTurn{}, false
}

// HasPending reports whether an unanswered turn exists.
func (s *TurnSequence) HasPending() bool {
	_, ok := s.Pending()
	return ok
}

// Answer records the customer's response on the turn with the given id.
// It fails if the turn is unknown or already answered.
func (s *TurnSequence) Answer(id uuid.UUID, answer string, fields map[string]string, delta float64, at time.Time) error {
	i, ok := s.index[id]
	if !ok {
		return ErrTurnNotFound
	}
	if s.turns[i].Answered() {
		return ErrTurnAnswered
	}
	s.turns[i].Answer = answer
	s.turns[i].ExtractedInfo = fields
	s.turns[i].ConfidenceDelta = delta
	answeredAt := at
	s.turns[i].AnsweredAt = &answeredAt
	return nil
}

// Before returns the turns that were asked strictly before the turn with the
// given id. This is the extraction window for an incoming answer: the answer
// being submitted is never part of its own prompt history.
func (s *TurnSequence) Before(id uuid.UUID) []ConversationTurn {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	out := make([]ConversationTurn, i)
	copy(out, s.turns[:i])
	return out
}

// All returns the turns in ask order.
func (s *TurnSequence) All() []ConversationTurn {
	out := make([]ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AnsweredCount returns how many turns have an answer recorded.
func (s *TurnSequence) AnsweredCount() int {
	n := 0
	for _, t := range s.turns {
		if t.Answered() {
			n++
		}
	}
	return n
}

// Len returns the total number of turns, answered or not.
func (s *TurnSequence) Len() int {
	return len(s.turns)
}
