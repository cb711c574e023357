package launch

import "fmt"

// State is a step of the launch. A launch moves through them in order and
// stops at the first failure.
type State int

const (
	TokenReceived State = iota
	IdentityResolved
	ContextValidated
	Admitted
	RoleAssigned
	MembershipRecorded
	SessionEstablished
)

var stateNames = [...]string{
	"token_received",
	"identity_resolved",
	"context_validated",
	"admitted",
	"role_assigned",
	"membership_recorded",
	"session_established",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Failure reasons shown to the user.
const (
	ReasonAuthDisabled  = "authdisabled"
	ReasonEnrolDisabled = "enroldisabled"
	ReasonInvalidTool   = "invalidtool"
	ReasonNoIdentity    = "cannot retrieve identity"
	ReasonUserFailed    = "cannot resolve user"
	ReasonInvalidCtx    = "invalid context"
	ReasonInternal      = "internal error"
)

// Failure aborts a launch. State is the last state reached before the
// failing step.
type Failure struct {
	State  State
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("launch failed after %s: %s: %v", f.State, f.Reason, f.Err)
	}
	return fmt.Sprintf("launch failed after %s: %s", f.State, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(st State, reason string, err error) *Failure {
	return &Failure{State: st, Reason: reason, Err: err}
}
