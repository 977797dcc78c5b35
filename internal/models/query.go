package models

import "time"

// QueryRequest is the request body for POST /api/query
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the pipeline's answer to a single query
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
	Cached  bool     `json:"cached"`
	Denied  bool     `json:"denied"`
}

// CacheEntry is the record persisted to the answer cache. Only answered
// (non-denied) results are ever written. ExpiresAt is checked on read even
// though the store also carries a TTL; store-level eviction is not assumed
// to be exact.
type CacheEntry struct {
	Key       string    `json:"key"`
	Question  string    `json:"question"`
	Role      string    `json:"role"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its declared expiry.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// RetrievalResult is one passage returned by the knowledge base, already
// filtered to the caller's clearance set at request time.
type RetrievalResult struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	TierTag string `json:"tier_tag,omitempty"`
}

// AccessRequestEvent is the escalation message published when a denied user
// asks for elevated clearance. Fire-and-forget; no lifecycle beyond delivery.
type AccessRequestEvent struct {
	Requester   string    `json:"requester"`
	EmployeeID  string    `json:"employee_id"`
	DeniedQuery string    `json:"denied_query"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccessRequestResponse is returned by POST /api/access/request
type AccessRequestResponse struct {
	Sent bool `json:"sent"`
}
