package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lanpan/internal/lanzou"
)

func newShareCmd(app *App) *cobra.Command {
	var folder bool
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "print the share link of a file or, with --folder, a folder",
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
			var info *lanzou.ShareInfo
			if folder {
				info, err = app.client.GetFolderShareInfo(ctx, id)
			} else {
				info, err = app.client.GetFileShareInfo(ctx, id)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.Name)
			fmt.Fprintln(out, info.URL)
			if info.Password != "" {
				fmt.Fprintln(out, "password:", info.Password)
			}
			if info.Description != "" {
				fmt.Fprintln(out, info.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "target is a folder")
	return cmd
}

// newResolveCmd inspects a share link without downloading: file shares print
// the resolved metadata and direct URL, folder shares the contained files.
func newResolveCmd(app *App) *cobra.Command {
	var password string
	var folder bool
	cmd := &cobra.Command{
		Use:   "resolve <share-url>",
		Short: "resolve a share link to its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if folder {
				detail, err := app.client.GetFolderInfoByURL(ctx, args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, detail.Name)
				for _, f := range detail.Files {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", f.Name, f.Size, f.Time, f.URL)
				}
				return nil
			}
			detail, err := app.client.GetFileInfoByURL(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\t%s\n", detail.Name, detail.Size, detail.Time)
			if detail.Description != "" {
				fmt.Fprintln(out, detail.Description)
			}
			fmt.Fprintln(out, detail.URL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "share password")
	cmd.Flags().BoolVar(&folder, "folder", false, "link is a folder share")
	return cmd
}
