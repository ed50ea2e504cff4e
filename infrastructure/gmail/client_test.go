package gmail

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"bili-archive/domain/notification"

	"google.golang.org/api/gmail/v1"
)

// mockGmailService is a mock implementation for testing
type mockGmailService struct {
	sentMessages []*gmail.Message
	shouldFail   bool
	failError    error
}

func (m *mockGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	m.sentMessages = append(m.sentMessages, message)
	return &gmail.Message{Id: "test-message-id"}, nil
}

func TestClient_Send(t *testing.T) {
	mock := &mockGmailService{}
	from := notification.Recipient{Name: "Archive Bot", Address: "archive-bot@example.com"}

	client := NewClient(from, WithGmailService(mock))

	req := &notification.ReportRequest{
		To:           []notification.Recipient{{Name: "John Doe", Address: "john@example.com"}},
		CC:           []notification.Recipient{{Name: "Jane Doe", Address: "jane@example.com"}},
		ArchiveDate:  time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		VideoTitle:   "【4K】Relaxing Scenery",
		BVID:         "BV1xz421B7ku",
		UploaderName: "某某UP主",
		ArchiveURL:   "https://drive.google.com/file/d/abc/view",
		SourceURL:    "https://www.bilibili.com/video/BV1xz421B7ku",
		SenderName:   "Sam",
	}

	err := client.Send(req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(mock.sentMessages) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(mock.sentMessages))
	}

	// Decode the raw message to verify content
	// The message is base64 URL encoded
	rawBytes, err := decodeBase64URL(mock.sentMessages[0].Raw)
	if err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	raw := string(rawBytes)

	// Subject is an RFC 2047 encoded word because titles are rarely ASCII
	encodedSubject := base64.StdEncoding.EncodeToString([]byte("Bilibili Archive: 【4K】Relaxing Scenery (BV1xz421B7ku)"))

	// Verify headers and body content
	checks := []string{
		"From: Archive Bot <archive-bot@example.com>",
		"To: John Doe <john@example.com>",
		"Cc: Jane Doe <jane@example.com>",
		"Subject: =?UTF-8?B?" + encodedSubject + "?=",
		"Dear John,", // Single recipient greeting
		"【4K】Relaxing Scenery by 某某UP主",
		"https://drive.google.com/file/d/abc/view",
		"https://www.bilibili.com/video/BV1xz421B7ku",
		"~Sam",
	}

	for _, check := range checks {
		if !strings.Contains(raw, check) {
			t.Errorf("message missing %q in:\n%s", check, raw)
		}
	}
}

func TestClient_Send_MultipleRecipients(t *testing.T) {
	mock := &mockGmailService{}
	from := notification.Recipient{Name: "Archive Bot", Address: "archive-bot@example.com"}

	client := NewClient(from, WithGmailService(mock))

	req := &notification.ReportRequest{
		To: []notification.Recipient{
			{Name: "John Doe", Address: "john@example.com"},
			{Name: "Alice Smith", Address: "alice@example.com"},
		},
		ArchiveDate: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		VideoTitle:  "【4K】Relaxing Scenery",
		BVID:        "BV1xz421B7ku",
		ArchiveURL:  "https://drive.google.com/file/d/abc/view",
		SourceURL:   "https://www.bilibili.com/video/BV1xz421B7ku",
		SenderName:  "Sam",
	}

	err := client.Send(req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	rawBytes, _ := decodeBase64URL(mock.sentMessages[0].Raw)
	raw := string(rawBytes)

	// Verify multiple recipients in To header
	if !strings.Contains(raw, "To: John Doe <john@example.com>, Alice Smith <alice@example.com>") {
		t.Errorf("message missing multiple recipients in To header:\n%s", raw)
	}

	// Greeting should use both recipients' names for two recipients
	if !strings.Contains(raw, "Dear John & Alice,") {
		t.Errorf("message should greet both recipients by name:\n%s", raw)
	}
}

func TestClient_Send_TitleFallsBackToBVID(t *testing.T) {
	mock := &mockGmailService{}
	from := notification.Recipient{Name: "Archive Bot", Address: "archive-bot@example.com"}

	client := NewClient(from, WithGmailService(mock))

	req := &notification.ReportRequest{
		To:          []notification.Recipient{{Name: "John Doe", Address: "john@example.com"}},
		ArchiveDate: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		BVID:        "BV1xz421B7ku",
		ArchiveURL:  "https://drive.google.com/file/d/abc/view",
		SenderName:  "Sam",
	}

	err := client.Send(req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	rawBytes, _ := decodeBase64URL(mock.sentMessages[0].Raw)
	raw := string(rawBytes)

	encodedSubject := base64.StdEncoding.EncodeToString([]byte("Bilibili Archive: BV1xz421B7ku (BV1xz421B7ku)"))
	if !strings.Contains(raw, "Subject: =?UTF-8?B?"+encodedSubject+"?=") {
		t.Errorf("message subject should fall back to BVID when no title:\n%s", raw)
	}
}

func TestClient_Send_ValidationError(t *testing.T) {
	mock := &mockGmailService{}
	from := notification.Recipient{Name: "Archive Bot", Address: "archive-bot@example.com"}

	client := NewClient(from, WithGmailService(mock))

	req := &notification.ReportRequest{
		// Missing To recipients
		ArchiveDate: time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		BVID:        "BV1xz421B7ku",
		ArchiveURL:  "https://drive.google.com/file/d/abc/view",
	}

	err := client.Send(req)
	if err == nil {
		t.Fatal("Send() expected error for invalid request, got nil")
	}
	if !strings.Contains(err.Error(), "invalid report request") {
		t.Errorf("Send() error = %v, want invalid report request error", err)
	}

	if len(mock.sentMessages) != 0 {
		t.Errorf("expected no message sent on validation failure, got %d", len(mock.sentMessages))
	}
}

// decodeBase64URL decodes a base64 URL encoded string
func decodeBase64URL(s string) ([]byte, error) {
	return base64.URLEncoding.DecodeString(s)
}
