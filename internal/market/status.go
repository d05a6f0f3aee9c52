package market

// InvestmentState tracks an investment through the two-phase pipeline.
type InvestmentState string

const (
	// StatePending means the stake is applied to visible totals but
	// not yet durable.
	StatePending InvestmentState = "pending"

	// StateCommitted means the stake settled into the ledger.
	StateCommitted InvestmentState = "committed"

	// StateReverted means the stake was rolled back.
	StateReverted InvestmentState = "reverted"
)

// String returns the string representation of the state.
func (s InvestmentState) String() string {
	return string(s)
}

// IsSettled reports whether the investment reached a final state.
func (s InvestmentState) IsSettled() bool {
	return s == StateCommitted || s == StateReverted
}

// Valid reports whether s is a known state.
func (s InvestmentState) Valid() bool {
	switch s {
	case StatePending, StateCommitted, StateReverted:
		return true
	}
	return false
}
