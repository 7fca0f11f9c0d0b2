package checkout

// State is the position of a sale attempt in the checkout flow.
type State string

const (
	StateCreated         State = "created"
	StateAwaitingPayment State = "awaiting_payment"
	StateVerifying       State = "verifying"
	StateCommitted       State = "committed"
	StateRejected        State = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected
}
