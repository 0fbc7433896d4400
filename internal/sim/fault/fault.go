// Package fault defines the rejection taxonomy shared by the simulation
// components. Every rejection is recoverable: callers log it, count it and
// carry on with the tick.
package fault

import (
	"errors"
	"fmt"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
)

type Error struct {
	Code string
	Op   string
	Ref  string
}

func (e *Error) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Ref, e.Code)
}

// Is matches on Code only, so errors.Is(err, fault.ErrNoEligibleSource)
// works for any Op/Ref.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidAgentReference = &Error{Code: protocol.ErrInvalidAgentReference}
	ErrDuplicateRegistration = &Error{Code: protocol.ErrDuplicateRegistration}
	ErrTransitionInProgress  = &Error{Code: protocol.ErrTransitionInProgress}
	ErrNoEligibleSource      = &Error{Code: protocol.ErrNoEligibleSource}
	ErrNoAvailablePad        = &Error{Code: protocol.ErrNoAvailablePad}
	ErrNoClonesOwed          = &Error{Code: protocol.ErrNoClonesOwed}
	ErrReloadRace            = &Error{Code: protocol.ErrReloadRace}
)

func New(code, op, ref string) error {
	return &Error{Code: code, Op: op, Ref: ref}
}

func InvalidAgent(op, ref string) error { return New(protocol.ErrInvalidAgentReference, op, ref) }
func DuplicateRegistration(op, ref string) error {
	return New(protocol.ErrDuplicateRegistration, op, ref)
}
func TransitionInProgress(op, ref string) error {
	return New(protocol.ErrTransitionInProgress, op, ref)
}
func NoEligibleSource(op, ref string) error { return New(protocol.ErrNoEligibleSource, op, ref) }
func NoAvailablePad(op, ref string) error   { return New(protocol.ErrNoAvailablePad, op, ref) }
func NoClonesOwed(op, ref string) error     { return New(protocol.ErrNoClonesOwed, op, ref) }

// ReloadRace describes coalesced emptiness conditions. It is logged and
// counted, never returned to a caller.
func ReloadRace(op, ref string) error { return New(protocol.ErrReloadRace, op, ref) }

// Code extracts the rejection code, or protocol.ErrInternal for foreign errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return protocol.ErrInternal
}
