package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBusy            = "E_BUSY"

	// Roster/lifecycle layer.
	ErrInvalidAgentReference = "E_INVALID_AGENT_REFERENCE"
	ErrDuplicateRegistration = "E_DUPLICATE_REGISTRATION"
	ErrTransitionInProgress  = "E_TRANSITION_IN_PROGRESS"

	// Cloning layer.
	ErrNoEligibleSource = "E_NO_ELIGIBLE_SOURCE"
	ErrNoAvailablePad   = "E_NO_AVAILABLE_PAD"
	ErrNoClonesOwed     = "E_NO_CLONES_OWED"

	// Level transitions. Coalesced by the latch; counted, never returned.
	ErrReloadRace = "E_RELOAD_RACE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:       {},
	ErrBusy:                  {},
	ErrInvalidAgentReference: {},
	ErrDuplicateRegistration: {},
	ErrTransitionInProgress:  {},
	ErrNoEligibleSource:      {},
	ErrNoAvailablePad:        {},
	ErrNoClonesOwed:          {},
	ErrReloadRace:            {},
	ErrInternal:              {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// KnownCodes returns every defined code except the empty one, in a stable order.
func KnownCodes() []string {
	return []string{
		ErrProtoBadRequest,
		ErrBusy,
		ErrInvalidAgentReference,
		ErrDuplicateRegistration,
		ErrTransitionInProgress,
		ErrNoEligibleSource,
		ErrNoAvailablePad,
		ErrNoClonesOwed,
		ErrReloadRace,
		ErrInternal,
	}
}
