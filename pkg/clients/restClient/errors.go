package restClient

import (
	"errors"
	"fmt"
)

// RemoteError is returned when the node answers with a status the operation does not accept.
type RemoteError struct {
	Operation  string
	StatusCode int
	Body       string

	// Transaction is the JSON of the rejected transaction, set by SubmitTransaction
	Transaction string
}

func (e *RemoteError) Error() string {
	if e.Transaction != "" {
		return fmt.Sprintf("%s failed with status %d: %s - %s", e.Operation, e.StatusCode, e.Body, e.Transaction)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// NotFoundError is returned when the node reports 404 for something that must exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// TimeoutError means the transaction was still pending after the last allowed poll.
type TimeoutError struct {
	Hash     string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transaction %s still pending after %d polls", e.Hash, e.Attempts)
}

// SettlementError means the transaction left the pending state but the record has no success marker.
type SettlementError struct {
	Hash string
	Body string
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("transaction %s settled without a success marker: %s", e.Hash, e.Body)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by a RemoteError anywhere in err's chain, or 0.
// A NotFoundError carries no status; check it with IsNotFound.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
