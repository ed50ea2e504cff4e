package cmd

import (
	"fmt"
	"os"

	"bili-archive/infrastructure/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bili-archive",
	Short: "Fetch Bilibili videos and archive them to Google Drive",
	Long: `bili-archive automates the workflow of fetching and archiving
Bilibili videos:

  - Resolve a BV id into its DASH stream listing
  - Fetch the selected video/audio streams and mux them into an mp4
  - Upload to Google Drive with sharing
  - Send email reports with links

Example:
  bili-archive archive BV1xz421B7ku --to jane`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func initConfig() {
	// A .env next to the binary can carry BILI_SESSDATA for logged-in
	// stream qualities. Missing file is fine.
	_ = godotenv.Load()

	if cfgFile == "" {
		cfgFile = "config/config.yaml"
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config file is optional for some commands (like help)
		// Commands that need config will check and error appropriately
		cfg = nil
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}
