package mollie

import (
	"errors"
	"fmt"
)

// Remote error taxonomy. Callers branch on these with errors.Is; the
// reconciler treats ErrTransport as "status unknown".
var (
	ErrNotFound  = errors.New("mollie: resource not found")
	ErrTransport = errors.New("mollie: transport error")
	ErrConflict  = errors.New("mollie: remote state conflict")
)

// apiError is the PSP's error body, attached to one of the sentinels above.
type apiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mollie api %d %s: %s", e.Status, e.Title, e.Detail)
}

func wrapStatus(status int, apiErr *apiError) error {
	var base error
	switch {
	case status == 404:
		base = ErrNotFound
	case status == 409 || status == 422:
		base = ErrConflict
	default:
		// auth, rate limit and server errors are all retry-later transport
		// failures from the reconciler's point of view
		base = ErrTransport
	}
	if apiErr != nil && apiErr.Status != 0 {
		return fmt.Errorf("%w: %s", base, apiErr.Error())
	}
	return fmt.Errorf("%w: http %d", base, status)
}
