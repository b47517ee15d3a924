package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

func newUserCmd(e *env) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show the remembered user memory, or set the name with --name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				info models.UserInfo
				err  error
			)
			if cmd.Flags().Changed("name") {
				info, err = e.app.Registry.SetUserName(ctx, name)
			} else {
				info, err = e.app.Registry.UserInfo(ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if e.jsonOut {
				return printJSON(out, info)
			}
			if n := info.Name(); n != "" {
				fmt.Fprintf(out, "%s %s\n", titleStyle.Render("name:"), n)
			} else {
				fmt.Fprintf(out, "%s %s\n", titleStyle.Render("name:"), metaStyle.Render("unknown"))
			}
			for _, k := range sorted(info.Preferences) {
				fmt.Fprintf(out, "%s %s\n", titleStyle.Render(k+":"), info.Preferences[k])
			}
			for _, k := range sorted(info.Context) {
				fmt.Fprintf(out, "%s %v\n", metaStyle.Render(k+":"), info.Context[k])
			}
			if ctxText := e.app.Memory.BuildContext(info); ctxText != "" {
				fmt.Fprintln(out, metaStyle.Render("prompt context: "+ctxText))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "set the remembered name (empty clears it)")
	return cmd
}

func sorted[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
