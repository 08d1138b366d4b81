package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBinCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bin",
		Short: "recycle bin operations",
	}
	cmd.AddCommand(
		newBinLsCmd(app),
		newBinRestoreCmd(app),
		newBinPurgeCmd(app),
		newBinClearCmd(app),
		newBinRestoreAllCmd(app),
	)
	return cmd
}

func newBinLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "list recycle bin contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			bin, err := app.client.ListRecycle(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			for _, f := range bin.Folders {
				fmt.Fprintf(w, "%d\t%s/\t\t\n", f.ID, f.Name)
				for _, inner := range f.Files {
					fmt.Fprintf(w, "\t  %s\t%s\t%s\n", inner.Name, inner.Size, inner.Time)
				}
			}
			for _, f := range bin.Files {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", f.ID, f.Name, f.Size, f.Time)
			}
			return w.Flush()
		},
	}
}

func newBinRestoreCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "restore a deleted file or, with --folder, a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if folder {
				return app.client.RestoreFolder(ctx, id)
			}
			return app.client.RestoreFile(ctx, id)
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

func newBinPurgeCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "permanently delete one recycled item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if folder {
				return app.client.PurgeFolder(ctx, id)
			}
			return app.client.PurgeFile(ctx, id)
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

func newBinClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "permanently delete everything in the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			return app.client.PurgeAll(ctx)
		},
	}
}

func newBinRestoreAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore-all",
		Short: "restore everything in the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			return app.client.RestoreAll(ctx)
		},
	}
}
