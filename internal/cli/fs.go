package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lanpan/internal/lanzou"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a numeric id", lanzou.ErrIDInvalid, s)
	}
	return id, nil
}

func newLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "list a folder (the root when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			folderID := lanzou.RootID
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				folderID = id
			}

			folders, path, err := app.client.ListFolders(ctx, folderID)
			if err != nil {
				return err
			}
			files, err := app.client.ListFiles(ctx, folderID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, seg := range path {
				if i > 0 {
					fmt.Fprint(out, " / ")
				}
				fmt.Fprint(out, seg.Name)
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
			for _, f := range folders {
				lock := ""
				if f.HasPassword {
					lock = "*"
				}
				fmt.Fprintf(w, "%d\t%s/%s\t\t%s\n", f.ID, f.Name, lock, f.Description)
			}
			for _, f := range files {
				lock := ""
				if f.HasPassword {
					lock = "*"
				}
				fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\n", f.ID, f.Name, lock, f.Size, f.Time)
			}
			return w.Flush()
		},
	}
}

func newMkdirCmd(app *App) *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "mkdir <parent-id> <name>",
		Short: "create a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			parent, err := parseID(args[0])
			if err != nil {
				return err
			}
			id, name, err := app.client.Mkdir(ctx, parent, args[1], desc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&desc, "desc", "", "folder description")
	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "rename a file or, with --folder, a folder",
		Args:  cobra.ExactArgs(2),
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
				return app.client.SetFolderInfo(ctx, id, args[1], "")
			}
			return app.client.RenameFile(ctx, id, args[1])
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

func newMoveCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "mv <id> <target-folder-id>",
		Short: "move a file or, with --folder, a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			target, err := parseID(args[1])
			if err != nil {
				return err
			}
			if !folder {
				return app.client.MoveFile(ctx, id, target)
			}
			res, err := app.client.MoveFolder(ctx, id, target)
			if res != nil {
				for _, n := range res.Moved {
					fmt.Fprintln(cmd.OutOrStdout(), "moved:", n)
				}
				for _, n := range res.Failed {
					fmt.Fprintln(cmd.OutOrStdout(), "FAILED:", n)
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

func newRmCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "delete a file or, with --folder, a folder (goes to the recycle bin)",
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
				return app.client.DeleteFolder(ctx, id)
			}
			return app.client.DeleteFile(ctx, id)
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

func newDescCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "desc <file-id> <text>",
		Short: "set a file description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.client.SetFileDescription(ctx, id, args[1])
		},
	}
}

func newPasswdCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "passwd <id> [password]",
		Short: "set or, with no password argument, clear a share password",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.authenticate(ctx); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pwd := ""
			if len(args) == 2 {
				pwd = args[1]
			}
			if folder {
				return app.client.SetFolderPassword(ctx, id, pwd)
			}
			return app.client.SetFilePassword(ctx, id, pwd)
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}
