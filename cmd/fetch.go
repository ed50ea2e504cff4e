package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	appfetch "bili-archive/application/fetch"
	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/bilibili"
	"bili-archive/infrastructure/config"
	"bili-archive/infrastructure/ffmpeg"
	"bili-archive/infrastructure/filesystem"
	"bili-archive/infrastructure/httpdl"
	infrainspect "bili-archive/infrastructure/inspect"
	"bili-archive/infrastructure/spider"

	"github.com/spf13/cobra"
)

var (
	fetchBest           bool
	fetchNative         bool
	fetchVerify         bool
	fetchFromPage       bool
	fetchDescriptorFile string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch a video's streams and save them as one mp4",
	Long: `Fetch a video by its BV id (or watch page URL), download the selected
video and audio streams, and mux them into a single mp4 file.

By default the download and mux are delegated to the spider.py helper
script. Pass --native to download and mux in-process instead, which
needs ffmpeg but no Python.

Examples:
  bili-archive fetch BV1xz421B7ku
  bili-archive fetch https://www.bilibili.com/video/BV1xz421B7ku --best
  bili-archive fetch BV1xz421B7ku --native --verify
  bili-archive fetch BV1xz421B7ku --descriptor playurl.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchBest, "best", false, "Select the highest-bandwidth streams instead of the first listed")
	fetchCmd.Flags().BoolVar(&fetchNative, "native", false, "Download and mux in-process instead of running the helper script")
	fetchCmd.Flags().BoolVar(&fetchVerify, "verify", false, "Sample-decode the output file after fetching")
	fetchCmd.Flags().BoolVar(&fetchFromPage, "from-page", false, "Scrape the stream listing from the watch page instead of the API")
	fetchCmd.Flags().StringVar(&fetchDescriptorFile, "descriptor", "", "Read the stream listing from a JSON file instead of resolving it")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; ensure config/config.yaml exists")
	}

	native := fetchNative || cfg.Fetch.Native
	verify := fetchVerify || cfg.Fetch.Verify

	selection := cfg.Fetch.Selection
	if fetchBest {
		selection = config.SelectionBest
	}

	resolver := buildResolver(cfg, fetchFromPage)
	dispatcher := buildDispatcher(cfg, native, os.Stdout)
	inspector := infrainspect.NewInspector()
	defer inspector.Close()

	// Helper runs are bounded by the configured timeout; the native path
	// manages its own HTTP timeouts.
	ctx := cmd.Context()
	if !native && cfg.Helper.TimeoutMinutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Helper.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	return RunFetchWithDependencies(
		ctx,
		resolver,
		dispatcher,
		inspector,
		selection,
		args[0],
		fetchDescriptorFile,
		verify,
		os.Stdout,
	)
}

// buildResolver assembles the production resolver chain: the web API first,
// with a watch-page scrape as fallback for videos the API refuses.
// BILI_SESSDATA from the environment unlocks logged-in stream qualities.
func buildResolver(cfg *config.Config, fromPage bool) media.Resolver {
	sessData := os.Getenv("BILI_SESSDATA")

	var pageOpts []bilibili.PageResolverOption
	if sessData != "" {
		pageOpts = append(pageOpts, bilibili.WithPageSessData(sessData))
	}
	page := bilibili.NewPageResolver(pageOpts...)
	if fromPage {
		return page
	}

	var apiOpts []bilibili.ClientOption
	if cfg.Bilibili.APIBaseURL != "" {
		apiOpts = append(apiOpts, bilibili.WithBaseURL(cfg.Bilibili.APIBaseURL))
	}
	if cfg.Bilibili.UserAgent != "" {
		apiOpts = append(apiOpts, bilibili.WithUserAgent(cfg.Bilibili.UserAgent))
	}
	if sessData != "" {
		apiOpts = append(apiOpts, bilibili.WithSessData(sessData))
	}
	api := bilibili.NewClient(apiOpts...)

	return bilibili.NewFallbackResolver(api, page)
}

// buildDispatcher picks the production dispatcher: the spider.py helper
// process by default, the in-process downloader+muxer when native is set
func buildDispatcher(cfg *config.Config, native bool, output io.Writer) media.Dispatcher {
	if !native {
		var opts []spider.DispatcherOption
		if cfg.Helper.Runtime != "" {
			opts = append(opts, spider.WithPythonPath(cfg.Helper.Runtime))
		}
		if cfg.Helper.Script != "" {
			opts = append(opts, spider.WithScriptPath(cfg.Helper.Script))
		}
		return spider.NewDispatcher(opts...)
	}

	var dlOpts []httpdl.DownloaderOption
	if cfg.Bilibili.Referer != "" {
		dlOpts = append(dlOpts, httpdl.WithReferer(cfg.Bilibili.Referer))
	}
	if cfg.Bilibili.UserAgent != "" {
		dlOpts = append(dlOpts, httpdl.WithUserAgent(cfg.Bilibili.UserAgent))
	}

	return appfetch.NewNativeFetcher(
		httpdl.NewDownloader(dlOpts...),
		ffmpeg.NewMuxer(),
		filesystem.NewChecker(),
		cfg.Paths.MediaDirectory,
		cfg.Paths.WorkDirectory,
		output,
	)
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// RunFetchWithDependencies runs the fetch command with injected dependencies (for testing)
func RunFetchWithDependencies(
	ctx context.Context,
	resolver media.Resolver,
	dispatcher media.Dispatcher,
	inspector inspect.Inspector,
	selection string,
	id string,
	descriptorPath string,
	verify bool,
	output OutputWriter,
) error {
	// Verify the helper (or ffmpeg) is available if the dispatcher supports it
	if verifiable, ok := dispatcher.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("dispatcher verification failed: %w", err)
		}
	}

	service := appfetch.NewService(resolver, dispatcher, inspector, selection)
	input := appfetch.Input{ID: id, Verify: verify}

	var info *media.VideoInfo
	if descriptorPath != "" {
		bvid, err := media.ParseBVID(id)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(descriptorPath)
		if err != nil {
			return fmt.Errorf("failed to read descriptor file: %w", err)
		}
		streams, err := media.ParseDescriptor(data)
		if err != nil {
			return err
		}
		info = &media.VideoInfo{BVID: bvid, Streams: streams}
	} else {
		resolved, err := service.Resolve(ctx, id)
		if err != nil {
			return err
		}
		info = resolved
		if info.Title != "" {
			fmt.Fprintf(output, "Title: %s\n", info.Title)
		}
	}

	fmt.Fprintf(output, "Fetching %s...\n", info.BVID)

	result, err := service.FetchResolved(ctx, info, input)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully saved: %s\n", result.OutputPath)
	if result.Report != nil {
		fmt.Fprintf(output, "Verified: %dx%d, %d/%d frames decoded\n",
			result.Report.Width, result.Report.Height,
			result.Report.DecodedFrames, result.Report.SampledFrames)
	}
	return nil
}
