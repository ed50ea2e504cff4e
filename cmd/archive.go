package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	apparchive "bili-archive/application/archive"
	"bili-archive/domain/distribution"
	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/domain/notification"
	"bili-archive/infrastructure/config"
	"bili-archive/infrastructure/drive"
	"bili-archive/infrastructure/gmail"
	infrainspect "bili-archive/infrastructure/inspect"

	"github.com/spf13/cobra"
)

var (
	archiveRecipientKeys []string
	archiveCCKeys        []string
	archiveSenderKey     string
	archiveBest          bool
	archiveNative        bool
	archiveVerify        bool
	archiveForce         bool
	archiveSkipReport    bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a video through the complete workflow",
	Long: `Archive a video through the complete automated workflow:
1. Resolve the BV id into its stream listing
2. Fetch the streams and mux them into an mp4
3. Clean up old archives from Google Drive if needed
4. Upload the mp4 to Google Drive and share it
5. Send an email report with links

Recipients, CCs, and senders are looked up by their config keys or
names. Pass --skip-report to archive without sending email.

Example:
  bili-archive archive BV1xz421B7ku --to jane

  bili-archive archive BV1xz421B7ku \
    --to jane --to john \
    --best --verify`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringArrayVar(&archiveRecipientKeys, "to", nil, "Recipient config key(s) or name(s) (can be repeated)")
	archiveCmd.Flags().StringArrayVar(&archiveCCKeys, "cc", nil, "Additional CC config key(s) (optional)")
	archiveCmd.Flags().StringVar(&archiveSenderKey, "sender", "", "Sender config key (defaults to config default_sender)")
	archiveCmd.Flags().BoolVar(&archiveBest, "best", false, "Select the highest-bandwidth streams instead of the first listed")
	archiveCmd.Flags().BoolVar(&archiveNative, "native", false, "Download and mux in-process instead of running the helper script")
	archiveCmd.Flags().BoolVar(&archiveVerify, "verify", false, "Sample-decode the output file after fetching")
	archiveCmd.Flags().BoolVar(&archiveForce, "force", false, "Re-archive even when Drive already holds the file")
	archiveCmd.Flags().BoolVar(&archiveSkipReport, "skip-report", false, "Archive without sending the report email")
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; ensure config/config.yaml exists")
	}

	ctx := cmd.Context()

	// Create production dependencies
	native := archiveNative || cfg.Fetch.Native
	resolver := buildResolver(cfg, false)
	dispatcher := buildDispatcher(cfg, native, os.Stdout)
	inspector := infrainspect.NewInspector()
	defer inspector.Close()

	// Create Drive client
	driveClient, err := drive.NewClient(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to create Google Drive client: %w", err)
	}

	// Create Gmail client, unless the report is skipped entirely
	var emailSender notification.EmailSender
	if !archiveSkipReport {
		from := notification.Recipient{
			Name:    cfg.Email.FromName,
			Address: cfg.Email.FromAddress,
		}
		gmailClient, err := gmail.NewClientWithOAuth(ctx, gmail.OAuthConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       "gmail_token.json",
		}, from)
		if err != nil {
			return fmt.Errorf("failed to create Gmail client: %w", err)
		}
		emailSender = gmailClient
	}

	selection := cfg.Fetch.Selection
	if archiveBest {
		selection = config.SelectionBest
	}

	input := ArchiveInput{
		ID:            args[0],
		Selection:     selection,
		RecipientKeys: archiveRecipientKeys,
		CCKeys:        archiveCCKeys,
		SenderKey:     archiveSenderKey,
		Verify:        archiveVerify,
		Force:         archiveForce,
		SkipReport:    archiveSkipReport,
	}

	return runArchiveWithClients(
		ctx,
		cfg,
		resolver,
		dispatcher,
		inspector,
		driveClient,
		emailSender,
		input,
		os.Stdout,
	)
}

// ArchiveInput contains the input parameters for archive command
type ArchiveInput struct {
	ID            string
	Selection     string
	RecipientKeys []string
	CCKeys        []string
	SenderKey     string
	Verify        bool
	Force         bool
	SkipReport    bool
}

// runArchiveWithClients runs the archive with the high-level clients (production path)
func runArchiveWithClients(
	ctx context.Context,
	cfg *config.Config,
	resolver media.Resolver,
	dispatcher media.Dispatcher,
	inspector inspect.Inspector,
	driveClient distribution.DriveClient,
	emailSender notification.EmailSender,
	input ArchiveInput,
	output io.Writer,
) error {
	// Verify the helper (or ffmpeg) is available
	if verifiable, ok := dispatcher.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("dispatcher verification failed: %w", err)
		}
	}

	// Create file sizer
	fileSizer := &productionFileSizer{}

	// Create archive service
	service := apparchive.NewService(
		resolver,
		dispatcher,
		inspector,
		fileSizer,
		driveClient,
		emailSender,
		cfg,
		output,
	)

	// Build input
	archiveInput := apparchive.Input{
		ID:            input.ID,
		Selection:     input.Selection,
		RecipientKeys: input.RecipientKeys,
		CCKeys:        input.CCKeys,
		SenderKey:     input.SenderKey,
		Verify:        input.Verify,
		Force:         input.Force,
		SkipReport:    input.SkipReport,
	}

	_, err := service.Archive(ctx, archiveInput)
	return err
}

// RunArchiveWithDependencies runs the archive command with injected dependencies (for testing)
// This version accepts low-level service interfaces for mocking
func RunArchiveWithDependencies(
	ctx context.Context,
	cfg *config.Config,
	resolver media.Resolver,
	dispatcher media.Dispatcher,
	inspector inspect.Inspector,
	fileChecker media.FileChecker,
	driveService drive.DriveService,
	gmailService gmail.GmailService,
	input ArchiveInput,
	output io.Writer,
) error {
	// Verify the helper (or ffmpeg) is available
	if verifiable, ok := dispatcher.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("dispatcher verification failed: %w", err)
		}
	}

	// Create Drive client wrapper
	driveClient, err := drive.NewClient(ctx, "", "", drive.WithDriveService(driveService))
	if err != nil {
		return fmt.Errorf("failed to create drive client: %w", err)
	}

	// Create Gmail client wrapper
	from := notification.Recipient{
		Name:    cfg.Email.FromName,
		Address: cfg.Email.FromAddress,
	}
	gmailClient := gmail.NewClient(from, gmail.WithGmailService(gmailService))

	// Create file sizer that uses the mock file checker
	fileSizer := &mockFileSizer{fileChecker: fileChecker}

	// Create archive service
	service := apparchive.NewService(
		resolver,
		dispatcher,
		inspector,
		fileSizer,
		driveClient,
		gmailClient,
		cfg,
		output,
	)

	// Build input
	archiveInput := apparchive.Input{
		ID:            input.ID,
		Selection:     input.Selection,
		RecipientKeys: input.RecipientKeys,
		CCKeys:        input.CCKeys,
		SenderKey:     input.SenderKey,
		Verify:        input.Verify,
		Force:         input.Force,
		SkipReport:    input.SkipReport,
	}

	_, err = service.Archive(ctx, archiveInput)
	return err
}

// productionFileSizer provides file sizes using os.Stat
type productionFileSizer struct{}

func (s *productionFileSizer) Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// mockFileSizer provides file sizes for testing using a SizeProvider interface
type mockFileSizer struct {
	fileChecker media.FileChecker
}

func (s *mockFileSizer) Size(path string) int64 {
	// Check if the file checker also implements a Size method
	if sizer, ok := s.fileChecker.(interface{ Size(string) int64 }); ok {
		return sizer.Size(path)
	}
	// Default to a reasonable size for testing
	return 200000000 // ~200MB
}
