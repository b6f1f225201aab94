package topics

const (
	// Wagers
	WagerSettled = "wager_settled"

	// DLQs
	WagerSettledDLQ = "wager_settled_dlq"
)
