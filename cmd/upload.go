package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	appdist "bili-archive/application/distribution"
	"bili-archive/domain/distribution"
	"bili-archive/infrastructure/drive"

	"github.com/spf13/cobra"
)

var (
	uploadList        bool
	uploadEmptyTrash  bool
	uploadEnsureSpace bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload an archived mp4 to Google Drive",
	Long: `Upload a fetched mp4 to the configured Google Drive archive folder
and make it shareable. An existing archive with the same name is
replaced.

Without a file argument, the most recently modified mp4 in the media
directory is uploaded.

Examples:
  bili-archive upload
  bili-archive upload /media/bili/BV1xz421B7ku.mp4 --ensure-space
  bili-archive upload --list
  bili-archive upload --empty-trash`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVar(&uploadList, "list", false, "List archived files instead of uploading")
	uploadCmd.Flags().BoolVar(&uploadEmptyTrash, "empty-trash", false, "Empty the Drive trash instead of uploading")
	uploadCmd.Flags().BoolVar(&uploadEnsureSpace, "ensure-space", false, "Delete the oldest archives until the file fits the quota")
}

func runUpload(cmd *cobra.Command, args []string) error {
	// Ensure config is loaded
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded; ensure config/config.yaml exists")
	}

	// Create drive client with OAuth
	ctx := cmd.Context()
	client, err := drive.NewClient(ctx, cfg.Google.CredentialsFile, cfg.Google.TokenFile)
	if err != nil {
		return fmt.Errorf("failed to create Google Drive client: %w", err)
	}

	// Resolve the file to upload, unless this is a list/trash invocation
	var filePath string
	switch {
	case len(args) > 0:
		filePath = args[0]
	case !uploadList && !uploadEmptyTrash:
		filePath, err = findLatestFile(cfg.Paths.MediaDirectory, ".mp4")
		if err != nil {
			return fmt.Errorf("no file specified and could not find latest: %w", err)
		}
	}

	return RunUploadWithDependencies(
		ctx,
		client,
		cfg.Google.ArchiveFolderID,
		filePath,
		uploadList,
		uploadEmptyTrash,
		uploadEnsureSpace,
		os.Stdout,
	)
}

// findLatestFile finds the most recently modified file with given extension in directory
func findLatestFile(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var latestPath string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestPath = filepath.Join(dir, entry.Name())
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("no %s files found in %s", ext, dir)
	}

	return latestPath, nil
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(
	ctx context.Context,
	driveClient distribution.DriveClient,
	folderID string,
	filePath string,
	list bool,
	emptyTrash bool,
	ensureSpace bool,
	output OutputWriter,
) error {
	cleanup := appdist.NewCleanupService(driveClient, folderID)

	if list {
		files, err := cleanup.ListArchives(ctx)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(output, "No archived files.")
			return nil
		}
		w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%.1f MB\t%s\n", f.Name, float64(f.Size)/1024/1024, f.CreatedTime.Format("2006-01-02"))
		}
		return w.Flush()
	}

	if emptyTrash {
		fmt.Fprintf(output, "Emptying trash...\n")
		if err := cleanup.EmptyTrash(ctx); err != nil {
			return err
		}
		fmt.Fprintf(output, "Trash emptied.\n")
		return nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	if ensureSpace {
		result, err := cleanup.EnsureSpaceAvailable(ctx, info.Size())
		if err != nil {
			return fmt.Errorf("failed to ensure space: %w", err)
		}
		for _, deleted := range result.DeletedFiles {
			fmt.Fprintf(output, "Deleted %s (%.1f MB)\n", deleted.Name, float64(deleted.Size)/1024/1024)
		}
	}

	service := appdist.NewUploadService(driveClient, folderID, output)

	fmt.Fprintf(output, "Uploading %s...\n", filepath.Base(filePath))
	result, err := service.UploadArchive(ctx, filePath)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Fprintf(output, "Upload successful!\n")
	fmt.Fprintf(output, "  File ID: %s\n", result.FileID)
	fmt.Fprintf(output, "  Size: %.2f MB\n", float64(result.Size)/1024/1024)
	fmt.Fprintf(output, "  Shareable URL: %s\n", result.ShareableURL)
	return nil
}

// Ensure drive.Client satisfies the domain port
var _ distribution.DriveClient = (*drive.Client)(nil)
