package notification

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// TemplateData contains all the fields available for email template rendering
type TemplateData struct {
	Greeting      string // Dynamic greeting based on recipient count
	VideoTitle    string
	BVID          string
	UploaderName  string
	DateFormatted string // e.g., "12/28/2025"
	ArchiveRef    string // "today", "yesterday", or "on 12/28" based on when the email is sent
	ArchiveURL    string
	SourceURL     string
	SenderName    string
}

// EmailTemplate contains the templates for rendering emails
type EmailTemplate struct {
	SubjectFormat string
	PlainText     string
	HTML          string
}

// DefaultTemplate is the standard email template for archive reports
var DefaultTemplate = EmailTemplate{
	SubjectFormat: "Bilibili Archive: {{.VideoTitle}} ({{.BVID}})",
	PlainText: `{{.Greeting}}

{{.VideoTitle}}{{if .UploaderName}} by {{.UploaderName}}{{end}} was archived {{.ArchiveRef}}.

Watch: {{.ArchiveURL}}
Source: {{.SourceURL}}

Thanks!
~{{.SenderName}}`,
	HTML: `<div dir="ltr">{{.Greeting}}<br><br>
<a href="{{.ArchiveURL}}">{{.VideoTitle}}</a>{{if .UploaderName}} by {{.UploaderName}}{{end}} was archived {{.ArchiveRef}}. The original page is <a href="{{.SourceURL}}">here</a>.<br><br>
Thanks!<br>
~{{.SenderName}}</div>`,
}

// FormatGreeting creates an appropriate greeting based on number of recipients
// 1 recipient: "Dear John,"
// 2 recipients: "Dear John & Jane,"
// 3+ recipients: "Hey Everyone!"
func FormatGreeting(recipients []Recipient) string {
	switch len(recipients) {
	case 0:
		return "Hello,"
	case 1:
		name := getFirstName(recipients[0].Name)
		return fmt.Sprintf("Dear %s,", name)
	case 2:
		name1 := getFirstName(recipients[0].Name)
		name2 := getFirstName(recipients[1].Name)
		return fmt.Sprintf("Dear %s & %s,", name1, name2)
	default:
		return "Hey Everyone!"
	}
}

// getFirstName extracts the first name from a full name
func getFirstName(fullName string) string {
	if fullName == "" {
		return "Friend"
	}
	// Split on space and take first part
	for i, c := range fullName {
		if c == ' ' {
			return fullName[:i]
		}
	}
	return fullName
}

// FormatArchiveRef returns the appropriate reference to the archive based on
// the archive date relative to the current date:
// - Same day: "today"
// - Yesterday: "yesterday"
// - Older: "on 12/28" (explicit date reference)
func FormatArchiveRef(archiveDate, now time.Time) string {
	// Normalize to date only (ignore time component)
	archiveDay := time.Date(archiveDate.Year(), archiveDate.Month(), archiveDate.Day(), 0, 0, 0, 0, time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	diff := today.Sub(archiveDay).Hours() / 24

	switch {
	case diff == 0:
		return "today"
	case diff == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("on %s", archiveDate.Format("1/2"))
	}
}

// RenderSubject renders the email subject using the template
func (t *EmailTemplate) RenderSubject(data TemplateData) (string, error) {
	return renderTemplate("subject", t.SubjectFormat, data)
}

// RenderPlainText renders the plain text email body
func (t *EmailTemplate) RenderPlainText(data TemplateData) (string, error) {
	return renderTemplate("plaintext", t.PlainText, data)
}

// RenderHTML renders the HTML email body
func (t *EmailTemplate) RenderHTML(data TemplateData) (string, error) {
	return renderTemplate("html", t.HTML, data)
}

func renderTemplate(name, tmplStr string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
