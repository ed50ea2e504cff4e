package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bili-archive/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up your configuration file
with all necessary paths, helper settings, Google Drive settings, and
email recipients.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, "config/config.yaml")
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	fmt.Println("Welcome to bili-archive setup!")
	fmt.Println()

	cfg := &config.Config{}

	// Paths section
	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}

	// Helper section
	if err := promptHelper(prompter, cfg); err != nil {
		return err
	}

	// Fetch section
	if err := promptFetch(prompter, cfg); err != nil {
		return err
	}

	// Google section
	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	// Email section
	if err := promptEmail(prompter, cfg); err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Save configuration
	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	media, err := prompter.Input("Where should fetched videos go?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if media == "" {
		return fmt.Errorf("media directory is required")
	}
	cfg.Paths.MediaDirectory = media

	work, err := prompter.Input("Where should temporary stream segments go?", os.TempDir())
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if work == "" {
		work = os.TempDir()
	}
	cfg.Paths.WorkDirectory = work

	return nil
}

func promptHelper(prompter Prompter, cfg *config.Config) error {
	runtime, err := prompter.Input("Python runtime for the helper script?", "python3")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if runtime == "" {
		runtime = "python3"
	}
	cfg.Helper.Runtime = runtime

	script, err := prompter.Input("Path to the spider.py helper script?", "scripts/spider.py")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if script == "" {
		script = "scripts/spider.py"
	}
	cfg.Helper.Script = script

	timeout, err := prompter.Input("Helper timeout in minutes?", "30")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if timeout != "" {
		minutes, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("timeout must be a number of minutes")
		}
		cfg.Helper.TimeoutMinutes = minutes
	}

	return nil
}

func promptFetch(prompter Prompter, cfg *config.Config) error {
	best, err := prompter.Confirm("Prefer the highest-bandwidth streams?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if best {
		cfg.Fetch.Selection = config.SelectionBest
	} else {
		cfg.Fetch.Selection = config.SelectionFirst
	}

	native, err := prompter.Confirm("Download in-process instead of using the Python helper?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Fetch.Native = native

	verify, err := prompter.Confirm("Sample-decode each output file after fetching?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Fetch.Verify = verify

	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	credentials, err := prompter.Input("Path to Google credentials file?", "credentials.json")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if credentials == "" {
		credentials = "credentials.json"
	}
	cfg.Google.CredentialsFile = credentials

	token, err := prompter.Input("Path to Google Drive token file?", "token.json")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if token == "" {
		token = "token.json"
	}
	cfg.Google.TokenFile = token

	folder, err := prompter.Input("Google Drive folder ID for archives?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.ArchiveFolderID = folder

	return nil
}

func promptEmail(prompter Prompter, cfg *config.Config) error {
	// From details
	fromName, err := prompter.Input("Display name for outgoing emails?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if fromName == "" {
		return fmt.Errorf("from name is required")
	}
	cfg.Email.FromName = fromName

	fromAddress, err := prompter.Input("Gmail address to send from?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if fromAddress == "" {
		return fmt.Errorf("from address is required")
	}
	cfg.Email.FromAddress = fromAddress

	// Default CC recipients
	cfg.Email.DefaultCC = []config.RecipientConfig{}
	for {
		addCC, err := prompter.Confirm("Add a CC recipient?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !addCC {
			break
		}

		recipient, err := promptRecipientWithPrompter(prompter)
		if err != nil {
			return err
		}
		cfg.Email.DefaultCC = append(cfg.Email.DefaultCC, recipient)
	}

	// Quick-lookup recipients
	cfg.Email.Recipients = make(map[string]config.RecipientConfig)
	for {
		addRecipient, err := prompter.Confirm("Add a quick-lookup recipient?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !addRecipient {
			break
		}

		nickname, err := prompter.Input("  Nickname:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if nickname == "" {
			return fmt.Errorf("nickname is required")
		}

		recipient, err := promptRecipientWithPrompter(prompter)
		if err != nil {
			return err
		}
		cfg.Email.Recipients[nickname] = recipient
	}

	return nil
}

func promptRecipientWithPrompter(prompter Prompter) (config.RecipientConfig, error) {
	name, err := prompter.Input("  Full name:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}
	if name == "" {
		return config.RecipientConfig{}, fmt.Errorf("name is required")
	}

	address, err := prompter.Input("  Email:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}
	if address == "" {
		return config.RecipientConfig{}, fmt.Errorf("email is required")
	}

	return config.RecipientConfig{
		Name:    name,
		Address: address,
	}, nil
}
