//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bili-archive/cmd"
	"bili-archive/infrastructure/config"

	"github.com/cucumber/godog"
)

type configCrudContext struct {
	tempDir    string
	configPath string
	config     *config.Config
	output     *bytes.Buffer
	err        error
}

// SharedConfigCrudContext is the context shared between config CRUD steps
var SharedConfigCrudContext = &configCrudContext{}

// InitializeConfigCrudScenario registers config CRUD steps with the godog suite
func InitializeConfigCrudScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigCrudContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-crud-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.config = nil
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedConfigCrudContext = &configCrudContext{}
		return c, nil
	})

	ctx.Step(`^a config file exists with initial data$`, testCtx.aConfigFileExistsWithInitialData)
	ctx.Step(`^the config has recipient "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, testCtx.theConfigHasRecipient)
	ctx.Step(`^the config has sender "([^"]*)" with name "([^"]*)"$`, testCtx.theConfigHasSender)
	ctx.Step(`^the default sender is "([^"]*)"$`, testCtx.theDefaultSenderIs)
	ctx.Step(`^I run config add (\w+) with key "([^"]*)" name "([^"]*)" and email "([^"]*)"$`, testCtx.iRunConfigAdd)
	ctx.Step(`^I run config list "([^"]*)"$`, testCtx.iRunConfigList)
	ctx.Step(`^I run config remove (\w+) "([^"]*)"$`, testCtx.iRunConfigRemove)
	ctx.Step(`^I run config update (\w+) "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, testCtx.iRunConfigUpdate)
	ctx.Step(`^I run config set-default (\w+) "([^"]*)"$`, testCtx.iRunConfigSetDefault)
	ctx.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, testCtx.theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	ctx.Step(`^the config should contain recipient "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, testCtx.theConfigShouldContainRecipient)
	ctx.Step(`^the config should not contain recipient "([^"]*)"$`, testCtx.theConfigShouldNotContainRecipient)
	ctx.Step(`^the config default sender should be "([^"]*)"$`, testCtx.theConfigDefaultSenderShouldBe)
}

func (c *configCrudContext) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

func (c *configCrudContext) saveConfig() error {
	return config.Save(c.config, c.configPath)
}

func (c *configCrudContext) aConfigFileExistsWithInitialData() error {
	c.config = &config.Config{
		Paths: config.PathsConfig{
			MediaDirectory: "/media/bili",
			WorkDirectory:  "/tmp/bili-work",
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
	}
	return c.saveConfig()
}

func (c *configCrudContext) theConfigHasRecipient(key, name, email string) error {
	c.config.Email.Recipients[key] = config.RecipientConfig{Name: name, Address: email}
	return c.saveConfig()
}

func (c *configCrudContext) theConfigHasSender(key, name string) error {
	c.config.Senders.Senders[key] = config.SenderConfig{Name: name}
	return c.saveConfig()
}

func (c *configCrudContext) theDefaultSenderIs(key string) error {
	c.config.Senders.DefaultSender = key
	return c.saveConfig()
}

func (c *configCrudContext) iRunConfigAdd(entityType, key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigAddWithDependencies(c.config, c.configPath, entityType, key, name, email, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigList(entityType string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigListWithDependencies(c.config, c.configPath, entityType, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigRemove(entityType, key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigRemoveWithDependencies(c.config, c.configPath, entityType, key, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigUpdate(entityType, key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigUpdateWithDependencies(c.config, c.configPath, entityType, key, name, email, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigSetDefault(entityType, key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigSetDefaultWithDependencies(c.config, c.configPath, entityType, key, c.output)
	return nil
}

func (c *configCrudContext) theCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected command to succeed but got error: %v\noutput:\n%s", c.err, c.output.String())
	}
	return nil
}

func (c *configCrudContext) theCommandShouldFailWith(expectedError string) error {
	if c.err == nil {
		return fmt.Errorf("expected command to fail with %q but it succeeded\noutput:\n%s", expectedError, c.output.String())
	}
	if !strings.Contains(strings.ToLower(c.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got: %v", expectedError, c.err)
	}
	return nil
}

func (c *configCrudContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(c.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, c.output.String())
	}
	return nil
}

func (c *configCrudContext) theConfigShouldContainRecipient(key, name, email string) error {
	saved, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	rc, ok := saved.Email.Recipients[key]
	if !ok {
		return fmt.Errorf("expected recipient %q in saved config but it is missing", key)
	}
	if rc.Name != name || rc.Address != email {
		return fmt.Errorf("expected recipient %q to be %s <%s> but got %s <%s>", key, name, email, rc.Name, rc.Address)
	}
	return nil
}

func (c *configCrudContext) theConfigShouldNotContainRecipient(key string) error {
	saved, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if _, ok := saved.Email.Recipients[key]; ok {
		return fmt.Errorf("expected recipient %q to be gone from saved config but it is present", key)
	}
	return nil
}

func (c *configCrudContext) theConfigDefaultSenderShouldBe(key string) error {
	saved, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if saved.Senders.DefaultSender != key {
		return fmt.Errorf("expected default sender %q but got %q", key, saved.Senders.DefaultSender)
	}
	return nil
}
