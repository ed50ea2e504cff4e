package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	appbatch "bili-archive/application/batch"
	appfetch "bili-archive/application/fetch"
	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/config"
	"bili-archive/infrastructure/filesystem"
	infrainspect "bili-archive/infrastructure/inspect"

	"github.com/spf13/cobra"
)

var (
	batchFile   string
	batchBest   bool
	batchNative bool
	batchVerify bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Fetch every video listed in a CSV file",
	Long: `Fetch all videos listed in a CSV file, one after another.

Each line is "bvid" or "bvid,title". Blank lines and lines starting
with # are ignored. A failed line is reported and skipped; the run
continues with the next line. Videos whose output file already exists
are skipped.

Example:
  bili-archive batch --file videos.csv
  bili-archive batch --file videos.csv --best --native`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchFile, "file", "", "Path to the CSV list of videos (required)")
	batchCmd.Flags().BoolVar(&batchBest, "best", false, "Select the highest-bandwidth streams instead of the first listed")
	batchCmd.Flags().BoolVar(&batchNative, "native", false, "Download and mux in-process instead of running the helper script")
	batchCmd.Flags().BoolVar(&batchVerify, "verify", false, "Sample-decode each output file after fetching")
	batchCmd.MarkFlagRequired("file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; ensure config/config.yaml exists")
	}

	entries, err := appbatch.LoadList(batchFile)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("batch list %s contains no entries", batchFile)
	}

	native := batchNative || cfg.Fetch.Native
	verify := batchVerify || cfg.Fetch.Verify

	selection := cfg.Fetch.Selection
	if batchBest {
		selection = config.SelectionBest
	}

	resolver := buildResolver(cfg, false)
	dispatcher := buildDispatcher(cfg, native, os.Stdout)
	inspector := infrainspect.NewInspector()
	defer inspector.Close()

	return RunBatchWithDependencies(
		cmd.Context(),
		resolver,
		dispatcher,
		inspector,
		filesystem.NewChecker(),
		cfg.Paths.MediaDirectory,
		selection,
		entries,
		verify,
		os.Stdout,
	)
}

// RunBatchWithDependencies runs the batch command with injected dependencies (for testing)
func RunBatchWithDependencies(
	ctx context.Context,
	resolver media.Resolver,
	dispatcher media.Dispatcher,
	inspector inspect.Inspector,
	fileChecker media.FileChecker,
	mediaDir string,
	selection string,
	entries []appbatch.Entry,
	verify bool,
	output io.Writer,
) error {
	fetchService := appfetch.NewService(resolver, dispatcher, inspector, selection)
	batchService := appbatch.NewService(fetchService, fileChecker, mediaDir, output)

	summary, err := batchService.Run(ctx, appbatch.RunInput{
		Entries: entries,
		Verify:  verify,
	})
	if err != nil {
		return err
	}

	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d of %d fetches failed", len(summary.Failed), summary.Total())
	}
	return nil
}
