package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/export"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

func newExportCmd(e *env) *cobra.Command {
	var (
		outPath string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "export [session]",
		Short: "Export one session as json, markdown or tar, or back up everything as tar.gz",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 0 {
				if outPath == "" {
					outPath = fmt.Sprintf("claudechat-%s.tar.gz", time.Now().Format("20060102-150405"))
				}
				return writeOutput(cmd, outPath, func(w io.Writer) error {
					n, err := e.app.Exporter.Backup(ctx, w)
					if err == nil {
						fmt.Fprintln(cmd.ErrOrStderr(), metaStyle.Render(fmt.Sprintf("%d files archived to %s", n, outPath)))
					}
					return err
				})
			}

			conv, err := e.app.Registry.Conversation(ctx, args[0])
			if err != nil {
				return err
			}
			if msgs, err := e.app.Registry.Messages(ctx, args[0]); err == nil {
				conv.Messages = msgs
			}

			switch format {
			case "json":
				return writeOutput(cmd, outPath, func(w io.Writer) error {
					return export.JSON(w, conv)
				})
			case "markdown", "md":
				return writeOutput(cmd, outPath, func(w io.Writer) error {
					_, err := io.WriteString(w, export.Markdown(conv))
					return err
				})
			case "tar":
				if conv.SessionID == "" {
					return fmt.Errorf("session %s has no transcript to archive", args[0])
				}
				if outPath == "" || outPath == "-" {
					outPath = utils.SanitizeFilename(conv.Title) + ".tar.gz"
				}
				return writeOutput(cmd, outPath, func(w io.Writer) error {
					_, err := e.app.Exporter.Backup(ctx, w, conv.SessionID)
					return err
				})
			default:
				return fmt.Errorf("invalid format %q: must be json, markdown or tar", format)
			}
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout for json and markdown when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or tar (single session only)")
	return cmd
}

// writeOutput runs write against path, or stdout when path is empty or "-".
// A failed write removes the partial file.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
