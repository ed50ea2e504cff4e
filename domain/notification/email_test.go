package notification

import (
	"testing"
	"time"
)

func TestReportRequest_Validate(t *testing.T) {
	validRequest := ReportRequest{
		To:          []Recipient{{Name: "John Doe", Address: "john@example.com"}},
		ArchiveDate: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		VideoTitle:  "【4K】Relaxing Scenery",
		BVID:        "BV1xz421B7ku",
		ArchiveURL:  "https://drive.google.com/file/d/abc/view",
		SourceURL:   "https://www.bilibili.com/video/BV1xz421B7ku",
	}

	tests := []struct {
		name    string
		modify  func(*ReportRequest)
		wantErr error
	}{
		{
			name:    "valid request",
			modify:  func(r *ReportRequest) {},
			wantErr: nil,
		},
		{
			name:    "no recipients",
			modify:  func(r *ReportRequest) { r.To = nil },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "empty recipients",
			modify:  func(r *ReportRequest) { r.To = []Recipient{} },
			wantErr: ErrNoRecipients,
		},
		{
			name:    "recipient without address",
			modify:  func(r *ReportRequest) { r.To = []Recipient{{Name: "John"}} },
			wantErr: ErrInvalidRecipient,
		},
		{
			name:    "no archive date",
			modify:  func(r *ReportRequest) { r.ArchiveDate = time.Time{} },
			wantErr: ErrNoArchiveDate,
		},
		{
			name:    "no video id",
			modify:  func(r *ReportRequest) { r.BVID = "" },
			wantErr: ErrNoBVID,
		},
		{
			name:    "no archive link",
			modify:  func(r *ReportRequest) { r.ArchiveURL = "" },
			wantErr: ErrNoArchiveURL,
		},
		{
			name:    "missing title is valid",
			modify:  func(r *ReportRequest) { r.VideoTitle = "" },
			wantErr: nil,
		},
		{
			name:    "missing source URL is valid",
			modify:  func(r *ReportRequest) { r.SourceURL = "" },
			wantErr: nil,
		},
		{
			name: "multiple recipients",
			modify: func(r *ReportRequest) {
				r.To = []Recipient{
					{Name: "John", Address: "john@example.com"},
					{Name: "Jane", Address: "jane@example.com"},
				}
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest // Copy
			tt.modify(&req)
			err := req.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportRequest_Title(t *testing.T) {
	req := ReportRequest{VideoTitle: "【4K】Relaxing Scenery", BVID: "BV1xz421B7ku"}
	if got := req.Title(); got != "【4K】Relaxing Scenery" {
		t.Errorf("Title() = %q, want video title", got)
	}

	req.VideoTitle = ""
	if got := req.Title(); got != "BV1xz421B7ku" {
		t.Errorf("Title() = %q, want BVID fallback", got)
	}
}
