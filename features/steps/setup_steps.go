//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bili-archive/cmd"
	"bili-archive/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	err             error
}

// SharedSetupContext is the context shared between setup steps
var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

// InitializeSetupScenario registers setup steps with the godog suite
func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.setupCancelled = false
		testCtx.originalContent = ""
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedSetupContext = &setupContext{}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, testCtx.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, testCtx.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^the setup should succeed$`, testCtx.theSetupShouldSucceed)
	ctx.Step(`^the setup should fail with "([^"]*)"$`, testCtx.theSetupShouldFailWith)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the config should have media_directory "([^"]*)"$`, testCtx.theConfigShouldHaveMediaDirectory)
	ctx.Step(`^the config should have work_directory "([^"]*)"$`, testCtx.theConfigShouldHaveWorkDirectory)
	ctx.Step(`^the config should have helper timeout (\d+)$`, testCtx.theConfigShouldHaveHelperTimeout)
	ctx.Step(`^the config should have stream selection "([^"]*)"$`, testCtx.theConfigShouldHaveStreamSelection)
	ctx.Step(`^the config should have archive_folder_id "([^"]*)"$`, testCtx.theConfigShouldHaveArchiveFolderID)
	ctx.Step(`^the config should have a CC recipient "([^"]*)"$`, testCtx.theConfigShouldHaveACCRecipient)
	ctx.Step(`^the config should have a quick-lookup recipient "([^"]*)"$`, testCtx.theConfigShouldHaveAQuickLookupRecipient)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

// parseInputTable splits prompt rows into the ordered input and confirm
// queues the mock prompter consumes. Confirm prompts are recognized by
// their leading verb; everything else is a text input.
func parseInputTable(table *godog.Table) ([]string, []bool) {
	var inputs []string
	var confirms []bool

	for _, row := range table.Rows {
		if row.Cells[0].Value == "prompt" {
			continue
		}
		prompt := strings.ToLower(row.Cells[0].Value)
		value := ""
		if len(row.Cells) > 1 {
			value = row.Cells[1].Value
		}

		isConfirm := false
		for _, prefix := range []string{"add", "prefer", "download", "sample"} {
			if strings.HasPrefix(prompt, prefix) {
				isConfirm = true
				break
			}
		}

		if isConfirm {
			confirms = append(confirms, strings.ToLower(value) == "y")
		} else {
			inputs = append(inputs, value)
		}
	}

	return inputs, confirms
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return nil
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	content := `paths:
  media_directory: /original/media
  work_directory: /original/work
helper:
  runtime: python3
  script: scripts/spider.py
  timeout_minutes: 30
google:
  credentials_file: original-creds.json
  archive_folder_id: original-folder-id
email:
  from_name: Original Archiver
  from_address: original@example.com
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	prompter := NewMockPrompter(inputs, confirms)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter([]string{}, []bool{confirm})
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	if !confirm {
		s.setupCancelled = true
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	confirms = append([]bool{strings.ToLower(confirmation) == "y"}, confirms...)
	prompter := NewMockPrompter(inputs, confirms)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	return nil
}

func (s *setupContext) theSetupShouldSucceed() error {
	if s.err != nil {
		return fmt.Errorf("expected setup to succeed but got error: %v", s.err)
	}
	return nil
}

func (s *setupContext) theSetupShouldFailWith(expectedError string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail with %q but it succeeded", expectedError)
	}
	if !strings.Contains(strings.ToLower(s.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got: %v", expectedError, s.err)
	}
	return nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); err != nil {
		return fmt.Errorf("expected config file at %s but stat failed: %v", s.configPath, err)
	}
	return nil
}

func (s *setupContext) loadSavedConfig() (*config.Config, error) {
	return config.Load(s.configPath)
}

func (s *setupContext) theConfigShouldHaveMediaDirectory(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Paths.MediaDirectory != expected {
		return fmt.Errorf("expected media_directory %q but got %q", expected, cfg.Paths.MediaDirectory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveWorkDirectory(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Paths.WorkDirectory != expected {
		return fmt.Errorf("expected work_directory %q but got %q", expected, cfg.Paths.WorkDirectory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveHelperTimeout(minutes int) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Helper.TimeoutMinutes != minutes {
		return fmt.Errorf("expected helper timeout %d but got %d", minutes, cfg.Helper.TimeoutMinutes)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveStreamSelection(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Fetch.Selection != expected {
		return fmt.Errorf("expected stream selection %q but got %q", expected, cfg.Fetch.Selection)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveArchiveFolderID(expected string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if cfg.Google.ArchiveFolderID != expected {
		return fmt.Errorf("expected archive_folder_id %q but got %q", expected, cfg.Google.ArchiveFolderID)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveACCRecipient(name string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	for _, cc := range cfg.Email.DefaultCC {
		if cc.Name == name {
			return nil
		}
	}
	return fmt.Errorf("expected a CC recipient named %q but DefaultCC was %v", name, cfg.Email.DefaultCC)
}

func (s *setupContext) theConfigShouldHaveAQuickLookupRecipient(key string) error {
	cfg, err := s.loadSavedConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Email.Recipients[key]; !ok {
		return fmt.Errorf("expected a quick-lookup recipient %q but recipients were %v", key, cfg.Email.Recipients)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if s.err != nil {
		return fmt.Errorf("expected cancelled setup to return nil but got error: %v", s.err)
	}
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled but it was not")
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("expected config file to be unchanged but it was modified")
	}
	return nil
}
