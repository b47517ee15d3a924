package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/api"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/server"
)

func newServeCmd(e *env) *cobra.Command {
	var (
		host    string
		port    int
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.FromAppConfig(e.app.Config)
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			cfg.WatchEnabled = !noWatch

			srv := server.New(cfg, e.app)
			api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			var serveErr error
			select {
			case serveErr = <-errCh:
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			shutdownErr := srv.Shutdown(ctx)
			// Shutdown closed the app
			e.app = nil

			return errors.Join(serveErr, shutdownErr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen address (default from HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from PORT)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not re-sync when transcripts change")
	return cmd
}

func newWatchCmd(e *env) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the history cache in sync with the transcripts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if debounce <= 0 {
				debounce = e.app.Config.WatchDebounce
			}

			doc, err := e.app.Registry.Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), metaStyle.Render(fmt.Sprintf("%d conversations, watching for changes", len(doc.Conversations))))

			err = e.app.Registry.Watch(ctx, debounce, func(doc *history.Document) {
				log.Info().Int("conversations", len(doc.Conversations)).Msg("history cache re-synced")
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before re-syncing (default from WATCH_DEBOUNCE_MS)")
	return cmd
}
