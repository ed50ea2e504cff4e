package notification

import "errors"

var (
	// ErrNoRecipients is returned when no To recipients are provided
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrInvalidRecipient is returned when a recipient has no email address
	ErrInvalidRecipient = errors.New("recipient must have an email address")

	// ErrNoArchiveDate is returned when the archive date is missing
	ErrNoArchiveDate = errors.New("archive date is required")

	// ErrNoBVID is returned when the video identifier is missing
	ErrNoBVID = errors.New("video id is required")

	// ErrNoArchiveURL is returned when no archive link is provided
	ErrNoArchiveURL = errors.New("archive link is required")

	// ErrRecipientNotFound is returned when a recipient lookup fails
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrAmbiguousRecipient is returned when multiple recipients match a query
	ErrAmbiguousRecipient = errors.New("multiple recipients match query")

	// ErrSendFailed is returned when the email fails to send
	ErrSendFailed = errors.New("failed to send email")
)
