package notification

import (
	"strings"
	"testing"
	"time"
)

func TestEmailTemplate_RenderSubject(t *testing.T) {
	data := TemplateData{
		VideoTitle: "【4K】Relaxing Scenery",
		BVID:       "BV1xz421B7ku",
	}

	subject, err := DefaultTemplate.RenderSubject(data)
	if err != nil {
		t.Fatalf("RenderSubject() error = %v", err)
	}

	expected := "Bilibili Archive: 【4K】Relaxing Scenery (BV1xz421B7ku)"
	if subject != expected {
		t.Errorf("RenderSubject() = %q, want %q", subject, expected)
	}
}

func TestEmailTemplate_RenderPlainText(t *testing.T) {
	data := TemplateData{
		Greeting:     "Dear John,",
		VideoTitle:   "【4K】Relaxing Scenery",
		UploaderName: "某某UP主",
		ArchiveRef:   "today",
		ArchiveURL:   "https://drive.google.com/file/d/abc/view",
		SourceURL:    "https://www.bilibili.com/video/BV1xz421B7ku",
		SenderName:   "Sam",
	}

	body, err := DefaultTemplate.RenderPlainText(data)
	if err != nil {
		t.Fatalf("RenderPlainText() error = %v", err)
	}

	// Verify key content is present
	checks := []string{
		"Dear John,",
		"【4K】Relaxing Scenery by 某某UP主 was archived today.",
		"Watch: https://drive.google.com/file/d/abc/view",
		"Source: https://www.bilibili.com/video/BV1xz421B7ku",
		"Thanks!\n~Sam",
	}

	for _, check := range checks {
		if !strings.Contains(body, check) {
			t.Errorf("RenderPlainText() missing %q in:\n%s", check, body)
		}
	}
}

func TestEmailTemplate_RenderPlainText_WithoutUploader(t *testing.T) {
	data := TemplateData{
		Greeting:   "Dear John,",
		VideoTitle: "【4K】Relaxing Scenery",
		ArchiveRef: "today",
		ArchiveURL: "https://drive.google.com/file/d/abc/view",
		SenderName: "Sam",
	}

	body, err := DefaultTemplate.RenderPlainText(data)
	if err != nil {
		t.Fatalf("RenderPlainText() error = %v", err)
	}

	// Should read "was archived today." with no dangling "by"
	if !strings.Contains(body, "【4K】Relaxing Scenery was archived today.") {
		t.Errorf("RenderPlainText() should drop the uploader clause when empty, got:\n%s", body)
	}
	if strings.Contains(body, " by ") {
		t.Errorf("RenderPlainText() should not contain \"by\" when no uploader, got:\n%s", body)
	}
}

func TestEmailTemplate_RenderHTML(t *testing.T) {
	data := TemplateData{
		Greeting:     "Dear John,",
		VideoTitle:   "【4K】Relaxing Scenery",
		UploaderName: "某某UP主",
		ArchiveRef:   "today",
		ArchiveURL:   "https://drive.google.com/file/d/abc/view",
		SourceURL:    "https://www.bilibili.com/video/BV1xz421B7ku",
		SenderName:   "Sam",
	}

	body, err := DefaultTemplate.RenderHTML(data)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	// Verify HTML links are clickable
	if !strings.Contains(body, `<a href="https://drive.google.com/file/d/abc/view">【4K】Relaxing Scenery</a>`) {
		t.Errorf("RenderHTML() missing archive link in:\n%s", body)
	}
	if !strings.Contains(body, `<a href="https://www.bilibili.com/video/BV1xz421B7ku">here</a>`) {
		t.Errorf("RenderHTML() missing source link in:\n%s", body)
	}
}

func TestEmailTemplate_RenderHTML_WithoutUploader(t *testing.T) {
	data := TemplateData{
		Greeting:   "Dear John,",
		VideoTitle: "【4K】Relaxing Scenery",
		ArchiveRef: "today",
		ArchiveURL: "https://drive.google.com/file/d/abc/view",
		SourceURL:  "https://www.bilibili.com/video/BV1xz421B7ku",
		SenderName: "Sam",
	}

	body, err := DefaultTemplate.RenderHTML(data)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	if strings.Contains(body, " by ") {
		t.Errorf("RenderHTML() should not contain \"by\" when no uploader, got:\n%s", body)
	}
}

func TestFormatArchiveRef(t *testing.T) {
	// Use a fixed "now" for testing
	archived := time.Date(2025, 12, 28, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name        string
		archiveDate time.Time
		now         time.Time
		want        string
	}{
		{
			name:        "same day (today)",
			archiveDate: archived,
			now:         archived,
			want:        "today",
		},
		{
			name:        "next day (yesterday)",
			archiveDate: archived,
			now:         archived.AddDate(0, 0, 1),
			want:        "yesterday",
		},
		{
			name:        "two days later (explicit date)",
			archiveDate: archived,
			now:         archived.AddDate(0, 0, 2),
			want:        "on 12/28",
		},
		{
			name:        "two weeks later",
			archiveDate: archived,
			now:         archived.AddDate(0, 0, 14),
			want:        "on 12/28",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatArchiveRef(tt.archiveDate, tt.now)
			if got != tt.want {
				t.Errorf("FormatArchiveRef() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatGreeting(t *testing.T) {
	tests := []struct {
		name       string
		recipients []Recipient
		want       string
	}{
		{
			name:       "no recipients",
			recipients: nil,
			want:       "Hello,",
		},
		{
			name:       "one recipient",
			recipients: []Recipient{{Name: "John Doe", Address: "john@example.com"}},
			want:       "Dear John,",
		},
		{
			name:       "two recipients",
			recipients: []Recipient{{Name: "John Doe"}, {Name: "Jane Smith"}},
			want:       "Dear John & Jane,",
		},
		{
			name:       "three recipients",
			recipients: []Recipient{{Name: "John"}, {Name: "Jane"}, {Name: "Alice"}},
			want:       "Hey Everyone!",
		},
		{
			name:       "recipient with no name",
			recipients: []Recipient{{Address: "john@example.com"}},
			want:       "Dear Friend,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatGreeting(tt.recipients)
			if got != tt.want {
				t.Errorf("FormatGreeting() = %q, want %q", got, tt.want)
			}
		})
	}
}
