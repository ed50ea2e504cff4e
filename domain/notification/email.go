package notification

import (
	"time"
)

// Recipient represents an email recipient with name and address
type Recipient struct {
	Name    string
	Address string
}

// ReportRequest contains all the data needed to send an archive report email
type ReportRequest struct {
	To           []Recipient // Primary recipients
	CC           []Recipient // Carbon copy recipients
	ArchiveDate  time.Time   // When the video was archived
	VideoTitle   string      // Title of the archived video
	BVID         string      // Bilibili video identifier (e.g., "BV1xz421B7ku")
	UploaderName string      // Uploader's display name on Bilibili
	ArchiveURL   string      // Google Drive URL for the archived file
	SourceURL    string      // Original Bilibili page URL
	SenderName   string      // Name to sign the email (e.g., "Sam")
}

// Validate checks that the report request has all required fields
func (r *ReportRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if to.Address == "" {
			return ErrInvalidRecipient
		}
	}
	if r.ArchiveDate.IsZero() {
		return ErrNoArchiveDate
	}
	if r.BVID == "" {
		return ErrNoBVID
	}
	if r.ArchiveURL == "" {
		return ErrNoArchiveURL
	}
	return nil
}

// Title returns the video title, falling back to the BVID when the
// title could not be resolved.
func (r *ReportRequest) Title() string {
	if r.VideoTitle != "" {
		return r.VideoTitle
	}
	return r.BVID
}

// EmailSender defines the interface for sending report emails
type EmailSender interface {
	Send(req *ReportRequest) error
}
