package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/app"
	"github.com/xiaoyuanzhu-com/claudechat/config"
	"github.com/xiaoyuanzhu-com/claudechat/log"
)

// env is shared by every command of one invocation
type env struct {
	loadConfig func() *config.Config

	jsonOut bool
	raw     bool

	app *app.App
}

// Execute runs the root command with flags bound to the global config.
func Execute() {
	root := newRootCmd(config.Get)
	bindConfigFlags(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// bindConfigFlags routes persistent flags into viper so they take
// precedence over the environment and config.yaml.
func bindConfigFlags(root *cobra.Command) {
	v := config.Viper()
	flags := root.PersistentFlags()
	_ = v.BindPFlag("CLAUDE_DIR", flags.Lookup("claude-dir"))
	_ = v.BindPFlag("CLAUDE_PATH", flags.Lookup("claude-path"))
	_ = v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = v.BindPFlag("MEMORY_LOCALE", flags.Lookup("locale"))
}

func newRootCmd(loadConfig func() *config.Config) *cobra.Command {
	e := &env{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:           "claudechat",
		Short:         "Chat with the Claude CLI and manage its local sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("claude-dir", "", "Claude data directory (default ~/.claude)")
	flags.String("claude-path", "", "path to the claude executable")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("locale", "", "user-memory locale (pt or en)")
	flags.BoolVar(&e.jsonOut, "json", false, "print JSON instead of formatted text")
	flags.BoolVar(&e.raw, "raw", false, "print Markdown without rendering it")

	root.AddCommand(
		newSendCmd(e),
		newChatCmd(e),
		newListCmd(e),
		newShowCmd(e),
		newCreateCmd(e),
		newRenameCmd(e),
		newDeleteCmd(e),
		newSyncCmd(e),
		newTasksCmd(e),
		newUserCmd(e),
		newFlagsCmd(e),
		newSnapshotsCmd(e),
		newExportCmd(e),
		newWatchCmd(e),
		newServeCmd(e),
	)
	return root
}

func (e *env) open() error {
	if e.app != nil {
		return nil
	}
	cfg := e.loadConfig()
	log.Init(cfg)
	if cfg.FileError != nil {
		log.Warn().Err(cfg.FileError).Msg("config file ignored")
	}

	a, err := app.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	e.app = a
	return nil
}

func (e *env) close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}
