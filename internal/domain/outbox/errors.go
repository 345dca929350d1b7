package outbox

import "errors"

var (
	ErrEventNotFound       = errors.New("outbox event not found")
	ErrInvalidStatus       = errors.New("invalid outbox status")
	ErrNotReplayable       = errors.New("only FAILED outbox events can be replayed")
	ErrLeaseLost           = errors.New("outbox event lease lost")
	ErrTransactionRequired = errors.New("outbox event must be written inside a transaction")
)
