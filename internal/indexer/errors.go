package indexer

import "errors"

var (
	// ErrTransactionFailed wraps every failure after the write transaction
	// has begun. The transaction is rolled back and the prior graph is kept.
	ErrTransactionFailed = errors.New("ingestion transaction failed")

	// ErrEmptyLocation is returned when no repository location is given.
	ErrEmptyLocation = errors.New("missing repository location")
)
