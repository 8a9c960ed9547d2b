package models

import (
	"errors"
	"fmt"
	"sync"
)

// ItemError is the failure of one item in a fan-out operation
type ItemError struct {
	ID  string
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// BatchResult collects the outcome of a settle-all fan-out. It is safe for
// concurrent use while the fan-out runs.
type BatchResult struct {
	mu        sync.Mutex
	Succeeded []string    `json:"succeeded"`
	Failed    []ItemError `json:"-"`
}

func (r *BatchResult) AddSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded = append(r.Succeeded, id)
}

func (r *BatchResult) AddFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, ItemError{ID: id, Err: err})
}

// Merge appends every entry of other to r
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	other.mu.Lock()
	succeeded := append([]string(nil), other.Succeeded...)
	failed := append([]ItemError(nil), other.Failed...)
	other.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded = append(r.Succeeded, succeeded...)
	r.Failed = append(r.Failed, failed...)
}

func (r *BatchResult) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failed) > 0
}

// FailedIDs returns the identities of the failed items
func (r *BatchResult) FailedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

// Err joins the item failures, or returns nil when every item succeeded
func (r *BatchResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// BatchSummary is the JSON form reported at the boundary
type BatchSummary struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func (r *BatchResult) Summary() BatchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := BatchSummary{Succeeded: append([]string{}, r.Succeeded...)}
	if len(r.Failed) > 0 {
		s.Failed = make(map[string]string, len(r.Failed))
		for _, f := range r.Failed {
			s.Failed[f.ID] = PublicMessage(f.Err)
		}
	}
	return s
}
