package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	appnotif "bili-archive/application/notification"
	"bili-archive/domain/media"
	"bili-archive/domain/notification"
	"bili-archive/infrastructure/config"
	"bili-archive/infrastructure/gmail"

	"github.com/spf13/cobra"
)

var (
	reportTo        []string
	reportCCKeys    []string
	reportSenderKey string
	reportBVID      string
	reportTitle     string
	reportUploader  string
	reportURL       string
	reportSourceURL string
	reportDate      string
)

var sendReportCmd = &cobra.Command{
	Use:   "send-report",
	Short: "Send an archive report email with the Drive link",
	Long: `Send an email report to recipients with the link to an archived video.

Recipients can be specified by name (first name, last name, or full name)
or by their config key. Multiple recipients can be specified using
multiple --to flags or comma-separated values.

Examples:
  # Send to a single recipient
  bili-archive send-report --to jane --bvid BV1xz421B7ku \
    --title "Some Video" --url "https://drive.google.com/..."

  # Send to multiple recipients
  bili-archive send-report --to jane --to john --bvid BV1xz421B7ku --url "https://..."
  bili-archive send-report --to "jane,john" --bvid BV1xz421B7ku --url "https://..."`,
	RunE: runSendReport,
}

func init() {
	rootCmd.AddCommand(sendReportCmd)
	sendReportCmd.Flags().StringArrayVar(&reportTo, "to", nil, "Recipient(s) by name or config key (can be repeated or comma-separated)")
	sendReportCmd.Flags().StringArrayVar(&reportCCKeys, "cc", nil, "Additional CC config key(s) (optional)")
	sendReportCmd.Flags().StringVar(&reportSenderKey, "sender", "", "Sender config key (defaults to config default_sender)")
	sendReportCmd.Flags().StringVar(&reportBVID, "bvid", "", "BV id of the archived video")
	sendReportCmd.Flags().StringVar(&reportTitle, "title", "", "Video title (defaults to the BV id in the email)")
	sendReportCmd.Flags().StringVar(&reportUploader, "uploader", "", "Uploader's display name")
	sendReportCmd.Flags().StringVar(&reportURL, "url", "", "Google Drive URL for the archived file")
	sendReportCmd.Flags().StringVar(&reportSourceURL, "source-url", "", "Original watch page URL (defaults to the BV id's page)")
	sendReportCmd.Flags().StringVar(&reportDate, "date", "", "Archive date in YYYY-MM-DD format (defaults to today)")

	sendReportCmd.MarkFlagRequired("to")
	sendReportCmd.MarkFlagRequired("bvid")
	sendReportCmd.MarkFlagRequired("url")
}

func runSendReport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; ensure config/config.yaml exists")
	}

	bvid, err := media.ParseBVID(reportBVID)
	if err != nil {
		return err
	}

	// Parse archive date
	archiveDate := time.Now()
	if reportDate != "" {
		archiveDate, err = time.Parse("2006-01-02", reportDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	sourceURL := reportSourceURL
	if sourceURL == "" {
		sourceURL = media.WatchURL(bvid)
	}

	// Lookup recipients
	lookup := config.NewRecipientLookup(cfg)
	recipients, err := lookup.LookupRecipients(reportTo)
	if err != nil {
		return fmt.Errorf("failed to lookup recipients: %w", err)
	}

	// Default CC plus any requested CC keys
	ccRecipients := lookup.GetDefaultCC()
	mgr := config.NewConfigManager(cfg, cfgFile)
	for _, key := range reportCCKeys {
		cc, _, err := mgr.GetCC(key)
		if err != nil {
			return fmt.Errorf("CC '%s' not found in config\n\nTo fix this, run:\n  %s", key, config.SuggestAddCCCommand(key))
		}
		ccRecipients = append(ccRecipients, notification.Recipient{Name: cc.Name, Address: cc.Address})
	}

	// Lookup sender
	var senderName string
	if reportSenderKey != "" {
		sender, err := mgr.GetSender(reportSenderKey)
		if err != nil {
			return fmt.Errorf("sender '%s' not found in config\n\nTo fix this, run:\n  %s", reportSenderKey, config.SuggestAddSenderCommand(reportSenderKey))
		}
		senderName = sender.Name
	} else {
		sender, err := mgr.GetDefaultSender()
		if err != nil {
			return fmt.Errorf("no default sender configured. Either specify --sender or set senders.default_sender in config")
		}
		senderName = sender.Name
	}

	// Create Gmail client with OAuth
	ctx := cmd.Context()
	from := notification.Recipient{
		Name:    cfg.Email.FromName,
		Address: cfg.Email.FromAddress,
	}

	// Use a separate token file for Gmail (different scope than Drive)
	gmailClient, err := gmail.NewClientWithOAuth(ctx, gmail.OAuthConfig{
		CredentialsFile: cfg.Google.CredentialsFile,
		TokenFile:       "gmail_token.json",
	}, from)
	if err != nil {
		return fmt.Errorf("failed to create Gmail client: %w", err)
	}

	return RunSendReportWithDependencies(
		ctx,
		gmailClient,
		senderName,
		recipients,
		ccRecipients,
		archiveDate,
		bvid,
		reportTitle,
		reportUploader,
		reportURL,
		sourceURL,
		os.Stdout,
	)
}

// RunSendReportWithDependencies runs the send-report command with injected dependencies (for testing)
func RunSendReportWithDependencies(
	ctx context.Context,
	sender notification.EmailSender,
	senderName string,
	recipients []notification.Recipient,
	ccRecipients []notification.Recipient,
	archiveDate time.Time,
	bvid string,
	title string,
	uploaderName string,
	archiveURL string,
	sourceURL string,
	output io.Writer,
) error {
	service := appnotif.NewService(sender, senderName)

	// Display what we're about to send
	toNames := make([]string, len(recipients))
	for i, r := range recipients {
		toNames[i] = fmt.Sprintf("%s <%s>", r.Name, r.Address)
	}
	fmt.Fprintf(output, "Sending report to: %s\n", strings.Join(toNames, ", "))

	if len(ccRecipients) > 0 {
		ccNames := make([]string, len(ccRecipients))
		for i, r := range ccRecipients {
			ccNames[i] = fmt.Sprintf("%s <%s>", r.Name, r.Address)
		}
		fmt.Fprintf(output, "CC: %s\n", strings.Join(ccNames, ", "))
	}

	displayTitle := title
	if displayTitle == "" {
		displayTitle = bvid
	}
	fmt.Fprintf(output, "Subject: Bilibili Archive: %s (%s)\n", displayTitle, bvid)
	if uploaderName != "" {
		fmt.Fprintf(output, "Uploader: %s\n", uploaderName)
	}
	fmt.Fprintf(output, "Archive URL: %s\n", archiveURL)
	fmt.Fprintf(output, "Source URL: %s\n", sourceURL)
	fmt.Fprintln(output)

	// Send the report
	fmt.Fprintf(output, "Sending report...\n")
	err := service.Send(appnotif.SendRequest{
		To:           recipients,
		CC:           ccRecipients,
		ArchiveDate:  archiveDate,
		VideoTitle:   title,
		BVID:         bvid,
		UploaderName: uploaderName,
		ArchiveURL:   archiveURL,
		SourceURL:    sourceURL,
	})
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	fmt.Fprintf(output, "Report sent successfully!\n")
	return nil
}
