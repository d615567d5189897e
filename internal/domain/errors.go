package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdentity is returned when an identity appears twice in a
// seating request.
var ErrDuplicateIdentity = errors.New("identity seated twice")

// ErrSeatOccupied is returned when a sit request targets a taken seat.
var ErrSeatOccupied = errors.New("seat is occupied")

// InvalidTransitionError reports an operation invoked from a phase that does
// not permit it.
type InvalidTransitionError struct {
	Phase Phase
	Op    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("operation %s not allowed in phase %s", e.Op, e.Phase)
}

// TooManyPlayersError reports a seating request above table capacity.
type TooManyPlayersError struct {
	Count    int
	Capacity int
}

func (e *TooManyPlayersError) Error() string {
	return fmt.Sprintf("cannot seat %d players at a %d-seat table", e.Count, e.Capacity)
}

// InsufficientCardsError reports a deal larger than the remaining deck.
type InsufficientCardsError struct {
	Requested int
	Remaining int
}

func (e *InsufficientCardsError) Error() string {
	return fmt.Sprintf("cannot deal %d cards, %d remaining", e.Requested, e.Remaining)
}

// MalformedDeckError reports a persisted card string that failed to parse.
type MalformedDeckError struct {
	Token  string
	Reason string
}

func (e *MalformedDeckError) Error() string {
	return fmt.Sprintf("malformed card token %q: %s", e.Token, e.Reason)
}

// NotFoundError reports a missing room, session, seat or identity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotAuthorizedError reports an actor lacking the required role for an
// operation.
type NotAuthorizedError struct {
	UserID string
	Op     string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %s is not authorized for %s", e.UserID, e.Op)
}

// InvalidBlindsError reports a blind configuration the table cannot run with.
type InvalidBlindsError struct {
	SmallBlind int64
	BigBlind   int64
}

func (e *InvalidBlindsError) Error() string {
	return fmt.Sprintf("invalid blinds %d/%d", e.SmallBlind, e.BigBlind)
}
