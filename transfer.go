package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file-id> <path>",
		Short: "Upload a local file to a model file",
		Long: `Upload a local file to a model file in compressed chunks.

With --import, the given import action runs after the upload completes.
With --watch, the file is uploaded again every time it changes, until
interrupted.`,
		Args: cobra.ExactArgs(2),
		RunE: runUpload,
	}

	cmd.Flags().String("import", "", "import action id to run after each upload")
	cmd.Flags().Bool("watch", false, "re-upload whenever the local file changes")

	return cmd
}

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a model file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownload,
	}

	cmd.Flags().StringP("output", "o", "", "write to this path instead of stdout")

	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <action-id>",
		Short: "Run an import, export, process or action and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
}

// parseID parses a numeric Anaplan identifier from a command argument.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", what, s)
	}

	return id, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	fileID, err := parseID("file id", args[0])
	if err != nil {
		return err
	}

	path := args[1]

	var importID int64

	if raw, _ := cmd.Flags().GetString("import"); raw != "" {
		if importID, err = parseID("import action id", raw); err != nil {
			return err
		}
	}

	watch, _ := cmd.Flags().GetBool("watch")

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		upload := func(ctx context.Context) error {
			return uploadOnce(ctx, cc, c, fileID, path, importID)
		}

		if err := upload(ctx); err != nil {
			return err
		}

		if !watch {
			return nil
		}

		ctx, stop := interruptContext(ctx, cc.Logger)
		defer stop()

		cc.Statusf("Watching %s for changes (Ctrl-C to stop)...\n", path)

		return watchFile(ctx, path, cc.Logger, func() {
			// A failed re-upload is reported and the watch continues.
			if err := upload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cc.Logger.Error("re-upload failed", slog.String("path", path), slog.String("error", err.Error()))
			}
		})
	})
}

// uploadOnce streams path to the file in configured-size chunks, so the
// file is never held in memory whole, then runs the import if one is set.
func uploadOnce(ctx context.Context, cc *CLIContext, c *anaplan.Client, fileID int64, path string, importID int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	counted := &countingReader{r: f}

	if err := c.UploadFileStream(ctx, fileID, anaplan.ReaderChunks(counted, int(cc.Cfg.UploadChunkSize))); err != nil {
		return err
	}

	if importID == 0 {
		cc.Statusf("Uploaded %s (%s) to file %d.\n", path, formatSize(counted.n), fileID)
		return nil
	}

	if _, err := c.RunAction(ctx, importID); err != nil {
		return err
	}

	cc.Statusf("Uploaded %s (%s) and ran import %d.\n", path, formatSize(counted.n), importID)

	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err
}

func runDownload(cmd *cobra.Command, args []string) error {
	fileID, err := parseID("file id", args[0])
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		var w io.Writer = os.Stdout

		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()

			w = f
		}

		n, err := copyChunks(w, c.GetFileStream(ctx, fileID))
		if err != nil {
			return err
		}

		if output != "" {
			cc.Statusf("Downloaded file %d to %s (%s).\n", fileID, output, formatSize(n))
		}

		return nil
	})
}

// copyChunks writes every chunk in order and returns the byte count.
func copyChunks(w io.Writer, chunks func(yield func([]byte, error) bool)) (int64, error) {
	var total int64

	for chunk, err := range chunks {
		if err != nil {
			return total, err
		}

		n, err := w.Write(chunk)
		total += int64(n)

		if err != nil {
			return total, fmt.Errorf("writing output: %w", err)
		}
	}

	return total, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	actionID, err := parseID("action id", args[0])
	if err != nil {
		return err
	}

	return withClient(cmd, func(ctx context.Context, cc *CLIContext, c *anaplan.Client) error {
		status, err := c.RunAction(ctx, actionID)

		var actionErr *anaplan.ActionError
		if errors.As(err, &actionErr) {
			printActionDetails(cc, actionErr.Details)
		}

		if err != nil {
			return err
		}

		if cc.Flags.JSON {
			return printJSON(os.Stdout, status)
		}

		cc.Statusf("Action %d finished: task %s %s.\n", actionID, status.ID, status.TaskState)

		return nil
	})
}

func printActionDetails(cc *CLIContext, details []map[string]any) {
	for _, d := range details {
		cc.Statusf("  %v: %v\n", d["type"], d["localMessageText"])
	}
}
