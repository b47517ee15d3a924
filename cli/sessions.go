package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/export"
)

func newListCmd(e *env) *cobra.Command {
	var noSync bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions grouped by project, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !noSync {
				if _, err := e.app.Registry.Sync(ctx); err != nil {
					return err
				}
			}
			groups, err := e.app.Registry.Groups(ctx)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(out, groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(out, metaStyle.Render("no sessions"))
				return nil
			}
			for i, g := range groups {
				if i > 0 {
					fmt.Fprintln(out)
				}
				name := g.Name
				if name == "" {
					name = "Other"
				}
				fmt.Fprintln(out, groupStyle.Render(fmt.Sprintf("%s (%d)", name, len(g.Conversations))))
				for _, c := range g.Conversations {
					fmt.Fprintln(out, conversationLine(c))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "read the history cache without rescanning transcripts")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session>",
		Short: "Print a session's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			conv, err := e.app.Registry.Conversation(ctx, args[0])
			if err != nil {
				return err
			}
			// The transcript is fresher than the cache
			if msgs, err := e.app.Registry.Messages(ctx, args[0]); err == nil {
				conv.Messages = msgs
			}
			if e.jsonOut {
				return printJSON(out, conv)
			}
			e.markdown(out, export.Markdown(conv))
			return nil
		},
	}
}

func newCreateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "create [title]",
		Short: "Create an empty session whose first message is the title",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := e.app.Registry.CreateSession(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"session_id": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newRenameCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session> <title>",
		Short: "Set a session's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			if err := e.app.Registry.RenameSession(cmd.Context(), args[0], title); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("renamed "+args[0]))
			return nil
		},
	}
}

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session>...",
		Aliases: []string{"rm"},
		Short:   "Delete sessions with their transcripts and task lists",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range args {
				if err := e.app.Registry.DeleteSession(cmd.Context(), key); err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("deleted "+key))
			}
			return nil
		},
	}
}

func newSyncCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the history cache with the transcripts on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := e.app.Registry.Sync(cmd.Context())
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{"conversations": len(doc.Conversations)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d conversations\n", len(doc.Conversations))
			return nil
		},
	}
}
