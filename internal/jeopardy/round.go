package jeopardy

import "time"

// RoundStatus is the lifecycle state of one question round.
type RoundStatus string

const (
	RoundOpen    RoundStatus = "OPEN"
	RoundGrading RoundStatus = "GRADING"
	RoundClosed  RoundStatus = "CLOSED"
)

// Round is one timed question-and-answer cycle. Exactly one round may
// be open at a time within a session.
type Round struct {
	Number   int
	Question Question
	OpensAt  time.Time
	ClosesAt time.Time
	Status   RoundStatus
}

// Submission is one player's recorded answer for a round. Immutable
// once accepted; at most one exists per (node, round).
type Submission struct {
	NodeID    string
	Username  string
	Round     int
	Text      string
	ArrivedAt time.Time
}
