// Package archive orchestrates the complete pipeline for one video:
// resolve, fetch, upload to Drive, and send the report email.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	appdist "bili-archive/application/distribution"
	appfetch "bili-archive/application/fetch"
	appnotif "bili-archive/application/notification"
	"bili-archive/domain/distribution"
	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/domain/notification"
	"bili-archive/infrastructure/config"
)

// FileSizer provides file size information
type FileSizer interface {
	Size(path string) int64
}

// Service orchestrates the complete archiving workflow
type Service struct {
	resolver    media.Resolver
	dispatcher  media.Dispatcher
	inspector   inspect.Inspector
	fileSizer   FileSizer
	driveClient distribution.DriveClient
	emailSender notification.EmailSender
	cfg         *config.Config
	output      io.Writer
}

// NewService creates a new archive service
func NewService(
	resolver media.Resolver,
	dispatcher media.Dispatcher,
	inspector inspect.Inspector,
	fileSizer FileSizer,
	driveClient distribution.DriveClient,
	emailSender notification.EmailSender,
	cfg *config.Config,
	output io.Writer,
) *Service {
	if output == nil {
		output = io.Discard
	}
	return &Service{
		resolver:    resolver,
		dispatcher:  dispatcher,
		inspector:   inspector,
		fileSizer:   fileSizer,
		driveClient: driveClient,
		emailSender: emailSender,
		cfg:         cfg,
		output:      output,
	}
}

// Input contains all input parameters for the archive command
type Input struct {
	ID            string   // Video id or watch page URL
	Selection     string   // Stream selection override ("first" or "best")
	RecipientKeys []string // Recipient config keys
	CCKeys        []string // CC config keys (optional)
	SenderKey     string   // Sender config key (optional, uses default if empty)
	Verify        bool     // Decode sample frames from the fetched file
	Force         bool     // Re-archive even when Drive already holds the file
	SkipReport    bool     // Skip the report email
}

// Result contains the results of a successful archive run
type Result struct {
	BVID        string
	Title       string
	OutputPath  string
	ArchiveURL  string
	ArchiveDate time.Time
}

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// Archive runs the complete end-to-end workflow
func (s *Service) Archive(ctx context.Context, input Input) (*Result, error) {
	startTime := time.Now()

	// Step 0: Validate all inputs before starting
	bvid, recipients, ccRecipients, senderName, err := s.validateInputs(ctx, input)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(s.output, "Archiving: %s\n", bvid)
	if input.SkipReport {
		fmt.Fprintf(s.output, "Mode: No report (--skip-report)\n")
	}
	fmt.Fprintln(s.output)

	// Route to appropriate workflow
	if input.SkipReport {
		return s.archiveOnly(ctx, input, bvid, startTime)
	}
	return s.archiveAndReport(ctx, input, bvid, recipients, ccRecipients, senderName, startTime)
}

// archiveAndReport handles the standard fetch+upload+report workflow
func (s *Service) archiveAndReport(ctx context.Context, input Input, bvid string, recipients, ccRecipients []notification.Recipient, senderName string, startTime time.Time) (*Result, error) {
	// Step 1: Resolve video
	fmt.Fprintf(s.output, "[1/5] Resolving video...\n")
	info, err := s.resolveVideo(ctx, bvid)
	if err != nil {
		s.showRecoveryCommands(1, input, bvid)
		return nil, fmt.Errorf("resolve failed: %w", err)
	}
	s.printVideoInfo(info)

	// Step 2: Fetch streams
	fmt.Fprintf(s.output, "[2/5] Fetching streams...\n")
	fetchResult, err := s.fetchVideo(ctx, info, input)
	if err != nil {
		s.showRecoveryCommands(2, input, bvid)
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	s.printFetchResult(fetchResult)

	// Step 3: Ensure Drive storage
	fmt.Fprintf(s.output, "[3/5] Checking Drive storage...\n")
	cleanupResult, err := s.ensureStorage(ctx, s.fileSizer.Size(fetchResult.OutputPath))
	if err != nil {
		s.showRecoveryCommands(3, input, bvid)
		return nil, fmt.Errorf("storage check failed: %w", err)
	}
	s.printCleanupResult(cleanupResult)

	// Step 4: Upload archive
	fmt.Fprintf(s.output, "[4/5] Uploading archive...\n")
	uploadResult, err := s.uploadArchive(ctx, fetchResult.OutputPath)
	if err != nil {
		s.showRecoveryCommands(4, input, bvid)
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	fmt.Fprintf(s.output, "      Uploaded: %s\n", filepath.Base(fetchResult.OutputPath))
	fmt.Fprintf(s.output, "      Link: %s\n\n", uploadResult.ShareableURL)

	// Step 5: Send report
	archiveDate := time.Now()
	fmt.Fprintf(s.output, "[5/5] Sending report...\n")
	err = s.sendReport(recipients, ccRecipients, archiveDate, info, senderName, uploadResult.ShareableURL)
	if err != nil {
		s.showRecoveryCommands(5, input, bvid)
		return nil, fmt.Errorf("report failed: %w", err)
	}
	for _, r := range recipients {
		fmt.Fprintf(s.output, "      Sent to: %s <%s>\n", r.Name, r.Address)
	}
	fmt.Fprintln(s.output)

	elapsed := time.Since(startTime)
	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(elapsed))

	return &Result{
		BVID:        bvid,
		Title:       info.Title,
		OutputPath:  fetchResult.OutputPath,
		ArchiveURL:  uploadResult.ShareableURL,
		ArchiveDate: archiveDate,
	}, nil
}

// archiveOnly handles the fetch+upload workflow (--skip-report mode)
func (s *Service) archiveOnly(ctx context.Context, input Input, bvid string, startTime time.Time) (*Result, error) {
	// Step 1: Resolve video
	fmt.Fprintf(s.output, "[1/4] Resolving video...\n")
	info, err := s.resolveVideo(ctx, bvid)
	if err != nil {
		s.showRecoveryCommands(1, input, bvid)
		return nil, fmt.Errorf("resolve failed: %w", err)
	}
	s.printVideoInfo(info)

	// Step 2: Fetch streams
	fmt.Fprintf(s.output, "[2/4] Fetching streams...\n")
	fetchResult, err := s.fetchVideo(ctx, info, input)
	if err != nil {
		s.showRecoveryCommands(2, input, bvid)
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	s.printFetchResult(fetchResult)

	// Step 3: Ensure Drive storage
	fmt.Fprintf(s.output, "[3/4] Checking Drive storage...\n")
	cleanupResult, err := s.ensureStorage(ctx, s.fileSizer.Size(fetchResult.OutputPath))
	if err != nil {
		s.showRecoveryCommands(3, input, bvid)
		return nil, fmt.Errorf("storage check failed: %w", err)
	}
	s.printCleanupResult(cleanupResult)

	// Step 4: Upload archive
	fmt.Fprintf(s.output, "[4/4] Uploading archive...\n")
	uploadResult, err := s.uploadArchive(ctx, fetchResult.OutputPath)
	if err != nil {
		s.showRecoveryCommands(4, input, bvid)
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	fmt.Fprintf(s.output, "      Uploaded: %s\n", filepath.Base(fetchResult.OutputPath))
	fmt.Fprintf(s.output, "      Link: %s\n\n", uploadResult.ShareableURL)

	elapsed := time.Since(startTime)
	fmt.Fprintf(s.output, "Done! Completed in %s\n", formatDuration(elapsed))

	return &Result{
		BVID:        bvid,
		Title:       info.Title,
		OutputPath:  fetchResult.OutputPath,
		ArchiveURL:  uploadResult.ShareableURL,
		ArchiveDate: time.Now(),
	}, nil
}

func (s *Service) validateInputs(ctx context.Context, input Input) (bvid string, recipients, ccRecipients []notification.Recipient, senderName string, err error) {
	bvid, err = media.ParseBVID(input.ID)
	if err != nil {
		return
	}

	// Check whether Drive already holds this archive
	if !input.Force {
		existing, checkErr := s.driveClient.FindFileByName(ctx, s.cfg.Google.ArchiveFolderID, bvid+".mp4")
		if checkErr != nil {
			err = fmt.Errorf("failed to check Drive for %s: %w", bvid, checkErr)
			return
		}
		if existing != nil {
			err = &ValidationError{
				Message:    fmt.Sprintf("%s has already been archived as %q", bvid, existing.Name),
				Suggestion: fmt.Sprintf("bili-archive archive %s --force", bvid),
			}
			return
		}
	}

	// No report means no email inputs to validate
	if input.SkipReport {
		return
	}

	if len(input.RecipientKeys) == 0 {
		err = &ValidationError{
			Message:    "no recipients specified",
			Suggestion: fmt.Sprintf("bili-archive archive %s --to <recipient> (or pass --skip-report)", bvid),
		}
		return
	}

	// Lookup recipients
	lookup := config.NewRecipientLookup(s.cfg)
	recipients, err = lookup.LookupRecipients(input.RecipientKeys)
	if err != nil {
		if errors.Is(err, notification.ErrAmbiguousRecipient) {
			err = &ValidationError{
				Message:    err.Error(),
				Suggestion: "bili-archive config list recipients",
			}
			return
		}
		key := input.RecipientKeys[0]
		if len(input.RecipientKeys) > 1 {
			key = "recipients"
		}
		err = &ValidationError{
			Message:    fmt.Sprintf("recipient '%s' not found in config", key),
			Suggestion: config.SuggestAddRecipientCommand(key),
		}
		return
	}

	// Get default CC recipients
	ccRecipients = lookup.GetDefaultCC()

	// Add any additional CC recipients from flags
	for _, ccKey := range input.CCKeys {
		ccMatches, ccErr := lookup.LookupRecipient(ccKey)
		if ccErr != nil {
			err = &ValidationError{
				Message:    fmt.Sprintf("cc recipient '%s' not found in config", ccKey),
				Suggestion: config.SuggestAddCCCommand(ccKey),
			}
			return
		}
		ccRecipients = append(ccRecipients, ccMatches...)
	}

	// Lookup sender
	mgr := config.NewConfigManager(s.cfg, "")
	if input.SenderKey != "" {
		sender, senderErr := mgr.GetSender(input.SenderKey)
		if senderErr != nil {
			err = &ValidationError{
				Message:    fmt.Sprintf("sender '%s' not found in config", input.SenderKey),
				Suggestion: config.SuggestAddSenderCommand(input.SenderKey),
			}
			return
		}
		senderName = sender.Name
	} else {
		sender, senderErr := mgr.GetDefaultSender()
		if senderErr != nil {
			err = &ValidationError{
				Message:    "no default sender configured",
				Suggestion: "Set senders.default_sender in config or use --sender flag",
			}
			return
		}
		senderName = sender.Name
	}

	return
}

func (s *Service) resolveVideo(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	fetchService := appfetch.NewService(s.resolver, s.dispatcher, s.inspector, s.cfg.Fetch.Selection)
	return fetchService.Resolve(ctx, bvid)
}

func (s *Service) fetchVideo(ctx context.Context, info *media.VideoInfo, input Input) (*appfetch.Result, error) {
	fetchService := appfetch.NewService(s.resolver, s.dispatcher, s.inspector, s.cfg.Fetch.Selection)
	return fetchService.FetchResolved(ctx, info, appfetch.Input{
		Selection: input.Selection,
		Verify:    input.Verify || s.cfg.Fetch.Verify,
	})
}

func (s *Service) ensureStorage(ctx context.Context, neededBytes int64) (*distribution.CleanupResult, error) {
	cleanupService := appdist.NewCleanupService(s.driveClient, s.cfg.Google.ArchiveFolderID)
	return cleanupService.EnsureSpaceAvailable(ctx, neededBytes)
}

func (s *Service) uploadArchive(ctx context.Context, filePath string) (*distribution.UploadResult, error) {
	uploadService := appdist.NewUploadService(s.driveClient, s.cfg.Google.ArchiveFolderID, s.output)
	return uploadService.UploadArchive(ctx, filePath)
}

func (s *Service) sendReport(recipients, ccRecipients []notification.Recipient, archiveDate time.Time, info *media.VideoInfo, senderName, archiveURL string) error {
	notifService := appnotif.NewService(s.emailSender, senderName)
	return notifService.Send(appnotif.SendRequest{
		To:           recipients,
		CC:           ccRecipients,
		ArchiveDate:  archiveDate,
		VideoTitle:   info.Title,
		BVID:         info.BVID,
		UploaderName: info.Owner,
		ArchiveURL:   archiveURL,
		SourceURL:    media.WatchURL(info.BVID),
	})
}

func (s *Service) printVideoInfo(info *media.VideoInfo) {
	fmt.Fprintf(s.output, "      Title: %s\n", info.Title)
	if info.Owner != "" {
		fmt.Fprintf(s.output, "      Uploader: %s\n", info.Owner)
	}
	if info.Duration > 0 {
		fmt.Fprintf(s.output, "      Duration: %s\n", formatDuration(time.Duration(info.Duration)*time.Second))
	}
	fmt.Fprintln(s.output)
}

func (s *Service) printFetchResult(result *appfetch.Result) {
	fmt.Fprintf(s.output, "      Saved: %s\n", result.OutputPath)
	if result.Report != nil {
		fmt.Fprintf(s.output, "      Verified: %dx%d, %d/%d frames decoded\n",
			result.Report.Width, result.Report.Height,
			result.Report.DecodedFrames, result.Report.SampledFrames)
	}
	fmt.Fprintln(s.output)
}

func (s *Service) printCleanupResult(result *distribution.CleanupResult) {
	for _, df := range result.DeletedFiles {
		fmt.Fprintf(s.output, "      Removed: %s (%.1f MB)\n", df.Name, float64(df.Size)/1024/1024)
	}
	if len(result.DeletedFiles) == 0 {
		fmt.Fprintf(s.output, "      Storage OK\n")
	}
	fmt.Fprintln(s.output)
}

func (s *Service) showRecoveryCommands(failedStep int, input Input, bvid string) {
	fmt.Fprintln(s.output)
	fmt.Fprintln(s.output, "To complete manually:")

	mediaPath := filepath.Join(s.cfg.Paths.MediaDirectory, bvid+".mp4")

	step := 1
	if failedStep <= 2 {
		fmt.Fprintf(s.output, "  %d. Fetch:     bili-archive fetch %s\n", step, bvid)
		step++
	}
	if failedStep <= 4 {
		fmt.Fprintf(s.output, "  %d. Upload:    bili-archive upload %q\n", step, mediaPath)
		step++
	}
	if failedStep <= 5 && !input.SkipReport {
		recipientArgs := ""
		for _, r := range input.RecipientKeys {
			recipientArgs += fmt.Sprintf(" --to %s", r)
		}
		fmt.Fprintf(s.output, "  %d. Report:    bili-archive send-report%s --bvid %s --url <LINK>\n", step, recipientArgs, bvid)
	}
	fmt.Fprintln(s.output)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// StepInfo provides information about a workflow step
type StepInfo struct {
	Number      int
	Description string
}

// GetSteps returns the list of workflow steps
func GetSteps() []StepInfo {
	return []StepInfo{
		{1, "Resolving video"},
		{2, "Fetching streams"},
		{3, "Checking Drive storage"},
		{4, "Uploading archive"},
		{5, "Sending report"},
	}
}
