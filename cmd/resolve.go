package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	appfetch "bili-archive/application/fetch"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/config"

	"github.com/spf13/cobra"
)

var resolveFromPage bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Show the stream listing for a video",
	Long: `Resolve a video by its BV id (or watch page URL) and print its
metadata and available DASH streams without downloading anything.

Example:
  bili-archive resolve BV1xz421B7ku
  bili-archive resolve BV1xz421B7ku --from-page`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveFromPage, "from-page", false, "Scrape the stream listing from the watch page instead of the API")
}

func runResolve(cmd *cobra.Command, args []string) error {
	// Resolving needs no paths or credentials, so a missing config file
	// just means resolver defaults
	cfg := GetConfig()
	if cfg == nil {
		cfg = &config.Config{}
	}

	resolver := buildResolver(cfg, resolveFromPage)

	return RunResolveWithDependencies(cmd.Context(), resolver, args[0], os.Stdout)
}

// RunResolveWithDependencies runs the resolve command with injected dependencies (for testing)
func RunResolveWithDependencies(ctx context.Context, resolver media.Resolver, id string, output OutputWriter) error {
	service := appfetch.NewService(resolver, nil, nil, "")

	info, err := service.Resolve(ctx, id)
	if err != nil {
		return err
	}

	if info.Title != "" {
		fmt.Fprintf(output, "%s: %s\n", info.BVID, info.Title)
	} else {
		fmt.Fprintln(output, info.BVID)
	}
	if info.Owner != "" {
		fmt.Fprintf(output, "Uploader: %s\n", info.Owner)
	}
	if info.Duration > 0 {
		fmt.Fprintf(output, "Duration: %dm %ds\n", info.Duration/60, info.Duration%60)
	}
	fmt.Fprintln(output)

	if info.Streams == nil || (len(info.Streams.Video) == 0 && len(info.Streams.Audio) == 0) {
		fmt.Fprintln(output, "No streams listed.")
		return nil
	}

	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tQUALITY\tCODEC\tRESOLUTION\tBANDWIDTH")
	for _, v := range info.Streams.Video {
		fmt.Fprintf(w, "video\t%s\t%s\t%s\t%s\n",
			media.QualityLabel(v.ID), v.Codecs, formatResolution(v.Width, v.Height), formatBandwidth(v.Bandwidth))
	}
	for _, a := range info.Streams.Audio {
		fmt.Fprintf(w, "audio\t%s\t%s\t-\t%s\n",
			media.QualityLabel(a.ID), a.Codecs, formatBandwidth(a.Bandwidth))
	}
	return w.Flush()
}

func formatResolution(width, height int) string {
	if width == 0 || height == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func formatBandwidth(bandwidth int) string {
	if bandwidth == 0 {
		return "-"
	}
	return fmt.Sprintf("%d kbps", bandwidth/1000)
}
