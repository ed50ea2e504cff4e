//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"bili-archive/cmd"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/config"

	"github.com/cucumber/godog"
	googledrive "google.golang.org/api/drive/v3"
	googlegmail "google.golang.org/api/gmail/v1"
)

// archiveMockDispatcher records fetch requests and writes a real file to the
// media directory so the upload stage's stat check passes.
type archiveMockDispatcher struct {
	requests    []*media.FetchRequest
	mediaDir    string
	fileChecker *archiveMockFileChecker
	failures    map[string]string
}

func (d *archiveMockDispatcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	d.requests = append(d.requests, req)
	if msg, ok := d.failures[req.Identifier]; ok {
		return "", fmt.Errorf("%s", msg)
	}
	if err := os.MkdirAll(d.mediaDir, 0755); err != nil {
		return "", err
	}
	outputPath := filepath.Join(d.mediaDir, req.OutputFilename())
	if err := os.WriteFile(outputPath, []byte("mock mp4 content"), 0644); err != nil {
		return "", err
	}
	d.fileChecker.existingFiles[outputPath] = true
	return outputPath, nil
}

type archiveMockFileChecker struct {
	existingFiles map[string]bool
	fileSizes     map[string]int64
}

func (f *archiveMockFileChecker) Exists(path string) bool {
	return f.existingFiles[path]
}

func (f *archiveMockFileChecker) Size(path string) int64 {
	if size, ok := f.fileSizes[path]; ok {
		return size
	}
	return 200 * 1024 * 1024
}

type archiveUpload struct {
	file      *googledrive.File
	mimeType  string
	folderID  string
	localPath string
}

// archiveMockDriveService implements drive.DriveService against in-memory
// state. ListFiles understands the `name = '...'` and mimeType clauses the
// client builds, and GetAbout recomputes usage as files are deleted so the
// cleanup loop sees its progress.
type archiveMockDriveService struct {
	files          []*googledrive.File
	uploads        map[string]archiveUpload
	permissions    map[string]*googledrive.Permission
	deletedFileIDs []string
	trashEmptied   bool
	storageLimit   int64
	storageUsage   int64
	uploadFails    bool
	uploadError    error
	nextFileID     int
}

func newArchiveMockDriveService() *archiveMockDriveService {
	return &archiveMockDriveService{
		uploads:      make(map[string]archiveUpload),
		permissions:  make(map[string]*googledrive.Permission),
		storageLimit: 15 * 1024 * 1024 * 1024,
		storageUsage: 5 * 1024 * 1024 * 1024,
		nextFileID:   1,
	}
}

func (s *archiveMockDriveService) isDeleted(fileID string) bool {
	for _, id := range s.deletedFileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

func (s *archiveMockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*googledrive.File, error) {
	var nameFilter string
	if idx := strings.Index(query, "name = '"); idx != -1 {
		rest := query[idx+len("name = '"):]
		if end := strings.Index(rest, "'"); end != -1 {
			nameFilter = rest[:end]
		}
	}
	mp4Only := strings.Contains(query, "mimeType = 'video/mp4'")

	var result []*googledrive.File
	for _, f := range s.files {
		if s.isDeleted(f.Id) {
			continue
		}
		if nameFilter != "" && f.Name != nameFilter {
			continue
		}
		if mp4Only && f.MimeType != "video/mp4" {
			continue
		}
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *archiveMockDriveService) GetAbout(ctx context.Context, fields string) (*googledrive.About, error) {
	usage := s.storageUsage
	for _, f := range s.files {
		if s.isDeleted(f.Id) {
			usage -= f.Size
		}
	}
	return &googledrive.About{
		StorageQuota: &googledrive.AboutStorageQuota{
			Limit: s.storageLimit,
			Usage: usage,
		},
	}, nil
}

func (s *archiveMockDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*googledrive.File, error) {
	if s.uploadFails {
		return nil, s.uploadError
	}
	file := &googledrive.File{
		Id:          fmt.Sprintf("uploaded-file-%d", s.nextFileID),
		Name:        fileName,
		MimeType:    mimeType,
		Size:        1024,
		WebViewLink: fmt.Sprintf("https://drive.google.com/file/d/uploaded-file-%d/view", s.nextFileID),
	}
	s.nextFileID++
	s.uploads[fileName] = archiveUpload{
		file:      file,
		mimeType:  mimeType,
		folderID:  folderID,
		localPath: localPath,
	}
	return file, nil
}

func (s *archiveMockDriveService) CreatePermission(ctx context.Context, fileID string, permission *googledrive.Permission) error {
	s.permissions[fileID] = permission
	return nil
}

func (s *archiveMockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	s.deletedFileIDs = append(s.deletedFileIDs, fileID)
	return nil
}

func (s *archiveMockDriveService) EmptyTrash(ctx context.Context) error {
	s.trashEmptied = true
	return nil
}

type archiveMockGmailService struct {
	sentMessages []*googlegmail.Message
}

func (g *archiveMockGmailService) SendMessage(ctx context.Context, userID string, message *googlegmail.Message) (*googlegmail.Message, error) {
	g.sentMessages = append(g.sentMessages, message)
	return &googlegmail.Message{Id: "test-message-id"}, nil
}

type archiveContext struct {
	tempDir      string
	mediaDir     string
	cfg          *config.Config
	resolver     *fetchMockResolver
	dispatcher   *archiveMockDispatcher
	fileChecker  *archiveMockFileChecker
	driveService *archiveMockDriveService
	gmailService *archiveMockGmailService
	flags        map[string][]string
	output       *bytes.Buffer
	err          error
}

// SharedArchiveContext is the context shared between archive steps
var SharedArchiveContext *archiveContext

func getArchiveContext() *archiveContext {
	if SharedArchiveContext == nil {
		SharedArchiveContext = &archiveContext{}
	}
	return SharedArchiveContext
}

// InitializeArchiveScenario registers archive steps with the godog suite
func InitializeArchiveScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "archive-test-*")
		if err != nil {
			return ctx, err
		}
		mediaDir := filepath.Join(tempDir, "media")
		fileChecker := &archiveMockFileChecker{
			existingFiles: make(map[string]bool),
			fileSizes:     make(map[string]int64),
		}
		SharedArchiveContext = &archiveContext{
			tempDir:     tempDir,
			mediaDir:    mediaDir,
			resolver:    newFetchMockResolver(),
			fileChecker: fileChecker,
			dispatcher: &archiveMockDispatcher{
				mediaDir:    mediaDir,
				fileChecker: fileChecker,
				failures:    make(map[string]string),
			},
			driveService: newArchiveMockDriveService(),
			gmailService: &archiveMockGmailService{},
			flags:        make(map[string][]string),
			output:       &bytes.Buffer{},
			cfg: &config.Config{
				Paths: config.PathsConfig{
					MediaDirectory: mediaDir,
					WorkDirectory:  filepath.Join(tempDir, "work"),
				},
				Helper: config.HelperConfig{
					Runtime:        "python3",
					Script:         "scripts/spider.py",
					TimeoutMinutes: 30,
				},
				Google: config.GoogleConfig{
					CredentialsFile: "credentials.json",
					TokenFile:       "token.json",
					ArchiveFolderID: "archive-folder-id",
				},
				Email: config.EmailConfig{
					FromName:    "Bili Archiver",
					FromAddress: "archiver@example.com",
					DefaultCC:   []config.RecipientConfig{},
					Recipients:  make(map[string]config.RecipientConfig),
				},
				Senders: config.SendersConfig{
					Senders: make(map[string]config.SenderConfig),
				},
			},
		}
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedArchiveContext != nil && SharedArchiveContext.tempDir != "" {
			os.RemoveAll(SharedArchiveContext.tempDir)
		}
		SharedArchiveContext = nil
		return ctx, nil
	})

	ctx.Step(`^the archive config has recipients:$`, theArchiveConfigHasRecipients)
	ctx.Step(`^the archive config has default CCs:$`, theArchiveConfigHasDefaultCCs)
	ctx.Step(`^the archive config has senders:$`, theArchiveConfigHasSenders)
	ctx.Step(`^no default sender is configured$`, noDefaultSenderIsConfigured)
	ctx.Step(`^the video "([^"]*)" is titled "([^"]*)" by "([^"]*)"$`, theVideoIsTitledBy)
	ctx.Step(`^resolving "([^"]*)" fails with "([^"]*)"$`, resolvingFailsWith)
	ctx.Step(`^drive already holds "([^"]*)"$`, driveAlreadyHolds)
	ctx.Step(`^drive has (\d+) MB free$`, driveHasMBFree)
	ctx.Step(`^drive holds archived files:$`, driveHoldsArchivedFiles)
	ctx.Step(`^the drive upload will fail with "([^"]*)"$`, theDriveUploadWillFailWith)
	ctx.Step(`^the download of "([^"]*)" will fail with "([^"]*)"$`, theDownloadOfWillFailWith)
	ctx.Step(`^I run archive for "([^"]*)" with flags:$`, iRunArchiveForWithFlags)
	ctx.Step(`^the archive should succeed$`, theArchiveShouldSucceed)
	ctx.Step(`^the archive should fail with "([^"]*)"$`, theArchiveShouldFailWith)
	ctx.Step(`^the error should suggest "([^"]*)"$`, theErrorShouldSuggest)
	ctx.Step(`^the recovery should suggest "([^"]*)"$`, theRecoveryShouldSuggest)
	ctx.Step(`^nothing should have been dispatched$`, nothingShouldHaveBeenDispatched)
	ctx.Step(`^"([^"]*)" should be uploaded to the archive folder$`, shouldBeUploadedToTheArchiveFolder)
	ctx.Step(`^the upload should be shared publicly$`, theUploadShouldBeSharedPublicly)
	ctx.Step(`^"([^"]*)" should have been replaced$`, shouldHaveBeenReplaced)
	ctx.Step(`^"([^"]*)" should have been removed from drive$`, shouldHaveBeenRemovedFromDrive)
	ctx.Step(`^the report should be sent to "([^"]*)"$`, theReportShouldBeSentTo)
	ctx.Step(`^the report should CC "([^"]*)"$`, theReportShouldCC)
	ctx.Step(`^the report should contain "([^"]*)"$`, theReportShouldContain)
	ctx.Step(`^no report should be sent$`, noReportShouldBeSent)
	ctx.Step(`^the output should include "([^"]*)"$`, theOutputShouldInclude)
	ctx.Step(`^the output should include recovery commands$`, theOutputShouldIncludeRecoveryCommands)
}

func theArchiveConfigHasRecipients(table *godog.Table) error {
	a := getArchiveContext()
	for _, row := range table.Rows {
		if row.Cells[0].Value == "key" {
			continue
		}
		a.cfg.Email.Recipients[row.Cells[0].Value] = config.RecipientConfig{
			Name:    row.Cells[1].Value,
			Address: row.Cells[2].Value,
		}
	}
	return nil
}

func theArchiveConfigHasDefaultCCs(table *godog.Table) error {
	a := getArchiveContext()
	for _, row := range table.Rows {
		if row.Cells[0].Value == "name" {
			continue
		}
		a.cfg.Email.DefaultCC = append(a.cfg.Email.DefaultCC, config.RecipientConfig{
			Name:    row.Cells[0].Value,
			Address: row.Cells[1].Value,
		})
	}
	return nil
}

func theArchiveConfigHasSenders(table *godog.Table) error {
	a := getArchiveContext()
	for _, row := range table.Rows {
		if row.Cells[0].Value == "key" {
			continue
		}
		key := row.Cells[0].Value
		a.cfg.Senders.Senders[key] = config.SenderConfig{Name: row.Cells[1].Value}
		if len(row.Cells) > 2 && row.Cells[2].Value == "yes" {
			a.cfg.Senders.DefaultSender = key
		}
	}
	return nil
}

func noDefaultSenderIsConfigured() error {
	getArchiveContext().cfg.Senders.DefaultSender = ""
	return nil
}

func theVideoIsTitledBy(bvid, title, owner string) error {
	a := getArchiveContext()
	a.resolver.infos[bvid] = &media.VideoInfo{
		BVID:     bvid,
		Title:    title,
		Owner:    owner,
		Duration: 634,
		Streams: &media.Descriptor{
			Video: []media.Representation{{BaseURL: "https://upos.example.com/v.m4s", Bandwidth: 1200000}},
			Audio: []media.Representation{{BaseURL: "https://upos.example.com/a.m4s", Bandwidth: 190000}},
		},
	}
	return nil
}

func resolvingFailsWith(bvid, message string) error {
	getArchiveContext().resolver.failures[bvid] = message
	return nil
}

func driveAlreadyHolds(name string) error {
	a := getArchiveContext()
	a.driveService.files = append(a.driveService.files, &googledrive.File{
		Id:       fmt.Sprintf("existing-file-%d", len(a.driveService.files)+1),
		Name:     name,
		MimeType: "video/mp4",
		Size:     150000000,
	})
	return nil
}

func driveHasMBFree(mb int) error {
	a := getArchiveContext()
	a.driveService.storageUsage = a.driveService.storageLimit - int64(mb)*1024*1024
	return nil
}

func driveHoldsArchivedFiles(table *godog.Table) error {
	a := getArchiveContext()
	for _, row := range table.Rows {
		if row.Cells[0].Value == "name" {
			continue
		}
		size, err := strconv.ParseInt(row.Cells[1].Value, 10, 64)
		if err != nil {
			return fmt.Errorf("bad size %q: %w", row.Cells[1].Value, err)
		}
		a.driveService.files = append(a.driveService.files, &googledrive.File{
			Id:       fmt.Sprintf("existing-file-%d", len(a.driveService.files)+1),
			Name:     row.Cells[0].Value,
			MimeType: "video/mp4",
			Size:     size,
		})
	}
	return nil
}

func theDriveUploadWillFailWith(message string) error {
	a := getArchiveContext()
	a.driveService.uploadFails = true
	a.driveService.uploadError = fmt.Errorf("%s", message)
	return nil
}

func theDownloadOfWillFailWith(bvid, message string) error {
	getArchiveContext().dispatcher.failures[bvid] = message
	return nil
}

func iRunArchiveForWithFlags(id string, table *godog.Table) error {
	a := getArchiveContext()

	for _, row := range table.Rows {
		if row.Cells[0].Value == "flag" {
			continue
		}
		flag := row.Cells[0].Value
		value := ""
		if len(row.Cells) > 1 {
			value = row.Cells[1].Value
		}
		a.flags[flag] = append(a.flags[flag], value)
	}

	_, force := a.flags["--force"]
	_, skipReport := a.flags["--skip-report"]
	input := cmd.ArchiveInput{
		ID:            id,
		Selection:     getFirstFlag(a.flags, "--selection"),
		RecipientKeys: a.flags["--to"],
		CCKeys:        a.flags["--cc"],
		SenderKey:     getFirstFlag(a.flags, "--sender"),
		Force:         force,
		SkipReport:    skipReport,
	}

	a.output.Reset()
	a.err = cmd.RunArchiveWithDependencies(
		context.Background(),
		a.cfg,
		a.resolver,
		a.dispatcher,
		nil,
		a.fileChecker,
		a.driveService,
		a.gmailService,
		input,
		a.output,
	)
	return nil
}

func getFirstFlag(flags map[string][]string, name string) string {
	if values, ok := flags[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

func theArchiveShouldSucceed() error {
	a := getArchiveContext()
	if a.err != nil {
		return fmt.Errorf("expected archive to succeed but got error: %v\noutput:\n%s", a.err, a.output.String())
	}
	return nil
}

func theArchiveShouldFailWith(expectedError string) error {
	a := getArchiveContext()
	if a.err == nil {
		return fmt.Errorf("expected archive to fail with %q but it succeeded\noutput:\n%s", expectedError, a.output.String())
	}
	if !strings.Contains(strings.ToLower(a.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got: %v", expectedError, a.err)
	}
	return nil
}

func suggestionText() string {
	a := getArchiveContext()
	combined := a.output.String()
	if a.err != nil {
		combined += "\n" + a.err.Error()
	}
	return combined
}

func theErrorShouldSuggest(command string) error {
	if !strings.Contains(suggestionText(), command) {
		return fmt.Errorf("expected a suggestion containing %q but got:\n%s", command, suggestionText())
	}
	return nil
}

func theRecoveryShouldSuggest(command string) error {
	return theErrorShouldSuggest(command)
}

func nothingShouldHaveBeenDispatched() error {
	a := getArchiveContext()
	if len(a.dispatcher.requests) != 0 {
		return fmt.Errorf("expected no dispatched downloads but got %d", len(a.dispatcher.requests))
	}
	return nil
}

func shouldBeUploadedToTheArchiveFolder(name string) error {
	a := getArchiveContext()
	upload, ok := a.driveService.uploads[name]
	if !ok {
		var names []string
		for n := range a.driveService.uploads {
			names = append(names, n)
		}
		return fmt.Errorf("expected %q to be uploaded but uploads were: %v", name, names)
	}
	if upload.mimeType != "video/mp4" {
		return fmt.Errorf("expected %q to be uploaded as video/mp4 but got %q", name, upload.mimeType)
	}
	if upload.folderID != a.cfg.Google.ArchiveFolderID {
		return fmt.Errorf("expected %q to land in folder %q but got %q", name, a.cfg.Google.ArchiveFolderID, upload.folderID)
	}
	return nil
}

func theUploadShouldBeSharedPublicly() error {
	a := getArchiveContext()
	for _, perm := range a.driveService.permissions {
		if perm.Type == "anyone" && perm.Role == "reader" {
			return nil
		}
	}
	return fmt.Errorf("expected a public reader permission but none was created")
}

func shouldHaveBeenReplaced(name string) error {
	a := getArchiveContext()
	var existingID string
	for _, f := range a.driveService.files {
		if f.Name == name {
			existingID = f.Id
			break
		}
	}
	if existingID == "" {
		return fmt.Errorf("no pre-existing drive file named %q", name)
	}
	if !a.driveService.isDeleted(existingID) {
		return fmt.Errorf("expected the old %q to be deleted but it was not", name)
	}
	if _, ok := a.driveService.uploads[name]; !ok {
		return fmt.Errorf("expected a fresh upload of %q but none happened", name)
	}
	return nil
}

func shouldHaveBeenRemovedFromDrive(name string) error {
	a := getArchiveContext()
	for _, f := range a.driveService.files {
		if f.Name == name {
			if !a.driveService.isDeleted(f.Id) {
				return fmt.Errorf("expected %q to be removed from drive but it was not", name)
			}
			return nil
		}
	}
	return fmt.Errorf("no drive file named %q was seeded", name)
}

func decodeLatestReport() (string, error) {
	a := getArchiveContext()
	if len(a.gmailService.sentMessages) == 0 {
		return "", fmt.Errorf("expected a report to be sent but none was")
	}
	msg := a.gmailService.sentMessages[len(a.gmailService.sentMessages)-1]
	decoded, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode report message: %w", err)
	}
	return string(decoded), nil
}

func reportHeaderContains(header, value string) error {
	decoded, err := decodeLatestReport()
	if err != nil {
		return err
	}
	for _, line := range strings.Split(decoded, "\n") {
		if strings.HasPrefix(line, header+":") && strings.Contains(line, value) {
			return nil
		}
	}
	return fmt.Errorf("expected %s header containing %q but message was:\n%s", header, value, decoded)
}

func theReportShouldBeSentTo(address string) error {
	return reportHeaderContains("To", address)
}

func theReportShouldCC(address string) error {
	return reportHeaderContains("Cc", address)
}

func theReportShouldContain(expected string) error {
	decoded, err := decodeLatestReport()
	if err != nil {
		return err
	}
	if !strings.Contains(decoded, expected) {
		return fmt.Errorf("expected report to contain %q but message was:\n%s", expected, decoded)
	}
	return nil
}

func noReportShouldBeSent() error {
	a := getArchiveContext()
	if len(a.gmailService.sentMessages) != 0 {
		return fmt.Errorf("expected no report but %d message(s) were sent", len(a.gmailService.sentMessages))
	}
	return nil
}

func theOutputShouldInclude(expected string) error {
	a := getArchiveContext()
	if !strings.Contains(a.output.String(), expected) {
		return fmt.Errorf("expected output to include %q but got:\n%s", expected, a.output.String())
	}
	return nil
}

func theOutputShouldIncludeRecoveryCommands() error {
	return theOutputShouldInclude("To complete manually:")
}
