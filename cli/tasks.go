package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/tasks"
)

func newTasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks <session>",
		Short: "Show or edit a session's task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := e.app.Registry.Tasks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.jsonOut {
				return printJSON(out, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, metaStyle.Render("no tasks"))
				return nil
			}
			for _, t := range items {
				fmt.Fprintln(out, taskLine(t))
			}
			return nil
		},
	}
	cmd.AddCommand(newTaskAddCmd(e), newTaskUpdateCmd(e), newTaskRemoveCmd(e))
	return cmd
}

func newTaskAddCmd(e *env) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add <session> <content>",
		Short: "Add a pending task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := e.app.Registry.AddTask(cmd.Context(), args[0], strings.Join(args[1:], " "), priority)
			if err != nil {
				return err
			}
			return e.printTask(cmd, t)
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", models.PriorityMedium, "low, medium or high")
	return cmd
}

func newTaskUpdateCmd(e *env) *cobra.Command {
	var content, status, priority string
	cmd := &cobra.Command{
		Use:   "update <session> <task-id>",
		Short: "Change a task's content, status or priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p tasks.Patch
			if cmd.Flags().Changed("content") {
				p.Content = &content
			}
			if cmd.Flags().Changed("status") {
				p.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				p.Priority = &priority
			}
			if p.Content == nil && p.Status == nil && p.Priority == nil {
				return fmt.Errorf("nothing to update: pass --content, --status or --priority")
			}
			t, err := e.app.Registry.UpdateTask(cmd.Context(), args[0], args[1], p)
			if err != nil {
				return err
			}
			return e.printTask(cmd, t)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new task text")
	cmd.Flags().StringVar(&status, "status", "", "pending, in_progress or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	return cmd
}

func newTaskRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <session> <task-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Registry.RemoveTask(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("removed task "+args[1]))
			return nil
		},
	}
}

func (e *env) printTask(cmd *cobra.Command, t models.Task) error {
	if e.jsonOut {
		return printJSON(cmd.OutOrStdout(), t)
	}
	fmt.Fprintln(cmd.OutOrStdout(), taskLine(t))
	return nil
}
