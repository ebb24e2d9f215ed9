// Package handlers defines the HTTP error codes of the receipt API.
//
// Every error response carries one of these codes next to the HTTP status so
// clients can branch on a stable value rather than on message text:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "No receipt found for that id"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Receipt operations.
	ErrCodeSubmitFailed = "submit_failed"
	ErrCodePointsFailed = "points_failed"
)

// User-facing messages.
const (
	msgInvalidReceipt = "The receipt is invalid."
	msgInvalidID      = "The receipt id is invalid."
	msgNoReceipt      = "No receipt found for that id"
	msgBodyTooLarge   = "request body too large"
)
