package models

// Action is the terminal outcome class of one policy decision. The values
// are the literal access(5) actions the calling MTA understands.
type Action string

const (
	// ActionOK accepts the message and supplies routing metadata.
	ActionOK Action = "OK"
	// ActionDefer is a temporary failure; the MTA retries later. Used for
	// rate limiting and for every infrastructure fault.
	ActionDefer Action = "DEFER"
	// ActionReject is a permanent failure; the MTA must not retry this
	// message against this policy check.
	ActionReject Action = "REJECT"
)

// Verdict is the engine's terminal decision for one request. Exactly one of
// Reason or BindAddress is meaningful: DEFER and REJECT carry a reason
// string with its SMTP status prefix (450 temporary, 550 permanent), OK
// carries the outbound bind address. Keeping this a closed type keeps the
// gate logic exhaustive; the open wire mapping exists only at the codec
// boundary.
type Verdict struct {
	Action      Action
	Reason      string
	BindAddress string
}

// Accept builds an OK verdict bound to the given outbound address.
func Accept(bindAddress string) Verdict {
	return Verdict{Action: ActionOK, BindAddress: bindAddress}
}

// Defer builds a temporary-failure verdict.
func Defer(reason string) Verdict {
	return Verdict{Action: ActionDefer, Reason: reason}
}

// Reject builds a permanent-failure verdict.
func Reject(reason string) Verdict {
	return Verdict{Action: ActionReject, Reason: reason}
}
