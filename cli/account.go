package cli

import (
	"bufio"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// readPassword takes --password or, failing that, the first line of stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("password required")
	}
	return strings.TrimRight(sc.Text(), "\r\n"), nil
}

func (a *app) signupCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			acc, err := a.state.Signup(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ welcome, %s", plain(acc.Username)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			acc, err := a.state.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprintf("✓ logged in as %s", plain(acc.Username)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.state.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().ok.Sprint("✓ logged out"))
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the remembered identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.state.User()
			if u == nil {
				fmt.Fprintln(cmd.OutOrStdout(), a.palette().muted.Sprint("not logged in"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.palette().author.Sprint(plain(u.Username)))
			return nil
		},
	}
}

func (a *app) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := a.state.API().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), accounts)
			return nil
		},
	}
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|plain]",
		Short:     "Print or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: themes,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.state.Theme())
				return nil
			}
			theme := strings.ToLower(args[0])
			if !slices.Contains(themes, theme) {
				return fmt.Errorf("unknown theme %q (%s)", args[0], strings.Join(themes, ", "))
			}
			if err := a.state.SetTheme(theme); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), paletteFor(theme).ok.Sprintf("✓ theme set to %s", theme))
			return nil
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server and its store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.state.API().Health(cmd.Context())
			if err != nil {
				return err
			}
			p := a.palette()
			status := p.ok.Sprint(h.Status)
			if h.Status != "ok" {
				status = p.err.Sprint(h.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  status=%s database=%s\n", a.state.API().BaseURL(), status, h.Database)
			if h.Status != "ok" {
				return errors.New("store unavailable")
			}
			return nil
		},
	}
}
