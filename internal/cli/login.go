package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newLoginCmd authenticates with username/password and prints the resulting
// cookie string. The cookie is what later invocations use (LANPAN_COOKIE or
// the JSON config); credentials are never stored.
func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "log in with credentials and print the session cookie",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var username string
			if len(args) == 1 {
				username = args[0]
			} else {
				fmt.Fprint(os.Stderr, "username: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}

			fmt.Fprint(os.Stderr, "password: ")
			pw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}

			if err := app.client.Login(cmd.Context(), username, string(pw)); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), app.client.CookieString())
			fmt.Fprintln(os.Stderr, "export the line above as LANPAN_COOKIE to stay logged in")
			return nil
		},
	}
}
