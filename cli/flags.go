package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFlagsCmd(e *env) *cobra.Command {
	var gates, configs []string
	cmd := &cobra.Command{
		Use:   "flags <session>",
		Short: "Show the feature-config snapshot used by a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.app.Registry.FeatureFlags(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snap := client.Snapshot()
			out := cmd.OutOrStdout()

			if len(gates) > 0 || len(configs) > 0 {
				result := map[string]any{}
				for _, g := range gates {
					result[g] = client.IsEnabled(g, false)
				}
				for _, c := range configs {
					result[c] = client.Value(c, nil)
				}
				if e.jsonOut {
					return printJSON(out, result)
				}
				for _, k := range sorted(result) {
					fmt.Fprintf(out, "%s %v\n", titleStyle.Render(k+":"), result[k])
				}
				return nil
			}

			if e.jsonOut {
				return printJSON(out, snap)
			}
			if snap.Path == "" {
				fmt.Fprintln(out, metaStyle.Render("no snapshot mentions this session"))
				return nil
			}
			fmt.Fprintln(out, metaStyle.Render(snap.Path))
			fmt.Fprintln(out, groupStyle.Render(fmt.Sprintf("Gates (%d)", len(snap.FeatureGates))))
			for _, k := range sorted(snap.FeatureGates) {
				mark := errorStyle.Render("off")
				if snap.FeatureGates[k].Value {
					mark = successStyle.Render("on ")
				}
				fmt.Fprintf(out, "  %s %s\n", mark, k)
			}
			fmt.Fprintln(out, groupStyle.Render(fmt.Sprintf("Configs (%d)", len(snap.DynamicConfigs))))
			for _, k := range sorted(snap.DynamicConfigs) {
				fmt.Fprintf(out, "  %s %v\n", k, snap.DynamicConfigs[k].Value)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&gates, "gate", nil, "evaluate gates (default false when absent)")
	cmd.Flags().StringSliceVar(&configs, "config", nil, "read dynamic config values")
	return cmd
}

func newSnapshotsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List feature-config snapshot files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := e.app.Flags.ListFiles()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.jsonOut {
				return printJSON(out, files)
			}
			if len(files) == 0 {
				fmt.Fprintln(out, metaStyle.Render("no snapshots"))
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(out, "%s  %s\n", f.Name,
					metaStyle.Render(fmt.Sprintf("%d bytes · %s", f.Size, f.Modified.Format("2006-01-02 15:04"))))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <file>...",
		Short: "Delete snapshot files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := e.app.Flags.DeleteFile(cmd.Context(), name); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("deleted "+name))
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Delete every snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.app.Flags.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d snapshots removed\n", n)
			return nil
		},
	})
	return cmd
}
