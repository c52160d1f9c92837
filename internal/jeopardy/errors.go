package jeopardy

import "errors"

// Errors returned by session operations. The router reports these back
// to the individual sender; they are never broadcast to the channel.
var (
	// ErrUnauthorized is returned when a non-admin attempts a
	// privileged command.
	ErrUnauthorized = errors.New("only admins can do that")

	// ErrInvalidState is returned when a command is not valid in the
	// session's current state, e.g. start while already running.
	ErrInvalidState = errors.New("command not valid in current game state")

	// ErrBanned is returned when a banned node attempts to submit.
	ErrBanned = errors.New("you are banned from playing")

	// ErrNoOpenRound is returned when a submission arrives while no
	// round is open, including late arrivals after the window closed.
	ErrNoOpenRound = errors.New("no open question right now")

	// ErrDuplicateSubmission is returned when a player already has a
	// recorded submission for the open round. First arrival wins.
	ErrDuplicateSubmission = errors.New("you already answered this question")
)
