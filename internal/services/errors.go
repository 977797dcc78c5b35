package services

import "errors"

// Failure taxonomy for the query pipeline. Every remote failure is surfaced
// once; nothing here is retried automatically and nothing is fatal to the
// process.
var (
	// ErrKeyNotFound is returned by the key-value store for absent keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrRetrievalUnavailable means the knowledge base call failed or timed
	// out. Terminal for the query, recoverable for the session.
	ErrRetrievalUnavailable = errors.New("retrieval service unavailable")

	// ErrGenerationUnavailable means the model invocation failed or timed
	// out. Terminal for the query, recoverable for the session.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrNotificationFailed means the access request could not be published.
	// The caller informs the user; the request may be resent manually.
	ErrNotificationFailed = errors.New("access request notification failed")
)
