package notification

import (
	"time"

	"bili-archive/domain/notification"
)

// Service handles archive report email operations
type Service struct {
	sender     notification.EmailSender
	senderName string
}

// NewService creates a new notification service
func NewService(sender notification.EmailSender, senderName string) *Service {
	return &Service{
		sender:     sender,
		senderName: senderName,
	}
}

// SendRequest contains the parameters for sending an archive report
type SendRequest struct {
	To           []notification.Recipient
	CC           []notification.Recipient
	ArchiveDate  time.Time
	VideoTitle   string
	BVID         string
	UploaderName string
	ArchiveURL   string
	SourceURL    string
}

// Send sends a report email for an archived video
func (s *Service) Send(req SendRequest) error {
	archiveDate := req.ArchiveDate
	if archiveDate.IsZero() {
		archiveDate = time.Now()
	}

	reportReq := &notification.ReportRequest{
		To:           req.To,
		CC:           req.CC,
		ArchiveDate:  archiveDate,
		VideoTitle:   req.VideoTitle,
		BVID:         req.BVID,
		UploaderName: req.UploaderName,
		ArchiveURL:   req.ArchiveURL,
		SourceURL:    req.SourceURL,
		SenderName:   s.senderName,
	}

	return s.sender.Send(reportReq)
}
