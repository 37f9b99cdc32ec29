package engine

import "fmt"

// ErrorKind classifies a rejected operation.
type ErrorKind string

const (
	KindOutOfTurn     ErrorKind = "out_of_turn"
	KindSequence      ErrorKind = "sequence"
	KindResourceState ErrorKind = "resource_state"
	KindComposition   ErrorKind = "composition"
	KindVotingOrder   ErrorKind = "voting_order"
	KindOwnership     ErrorKind = "ownership"
)

// RuleError is returned for every illegal operation. The game is unchanged
// when a RuleError is returned.
type RuleError struct {
	Kind ErrorKind
	Msg  string
}

func (e *RuleError) Error() string { return string(e.Kind) + ": " + e.Msg }

// Is matches any RuleError of the same kind, so callers can test with
// errors.Is(err, ErrSequence).
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Kind == e.Kind
}

var (
	ErrOutOfTurn     = &RuleError{Kind: KindOutOfTurn, Msg: "not your turn"}
	ErrSequence      = &RuleError{Kind: KindSequence, Msg: "action not allowed at this point of the turn"}
	ErrResourceState = &RuleError{Kind: KindResourceState, Msg: "required card or pile is not available"}
	ErrComposition   = &RuleError{Kind: KindComposition, Msg: "cards do not form a legal meld"}
	ErrVotingOrder   = &RuleError{Kind: KindVotingOrder, Msg: "vote is out of order"}
	ErrOwnership     = &RuleError{Kind: KindOwnership, Msg: "card is not yours"}
)

func ruleErr(kind ErrorKind, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
