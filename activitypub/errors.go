package activitypub

import (
	"errors"
	"fmt"
)

// ErrAuthentication rejects an inbound request whose HTTP signature or
// body digest could not be verified. The whole request fails, nothing
// is processed.
var ErrAuthentication = errors.New("http signature authentication failed")

// ValidationError marks a malformed activity or object. Invalid items
// are dropped from the batch and never surfaced to the sender.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid activity: %s", e.Reason)
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError marks a failed remote object resolution (fetch
// failure, host mismatch, invalid remote document). It aborts only the
// dependent activity.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func resolutionError(url string, err error) error {
	return &ResolutionError{URL: url, Err: err}
}

// AuthorityError marks an ownership or actor mismatch on a mutation
// (Delete/Update/CacheFile). The mutation is rejected and the failure
// is surfaced to the job runtime.
type AuthorityError struct {
	Reason string
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("authority check failed: %s", e.Reason)
}

func authorityErrorf(format string, args ...interface{}) error {
	return &AuthorityError{Reason: fmt.Sprintf(format, args...)}
}
