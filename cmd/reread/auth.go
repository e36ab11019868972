package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"news-reread/internal/auth"
)

var passwordFlag string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and store credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		st, err := application.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		return reportState(st)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		st, err := application.Register(cmd.Context(), args[0], args[1], password)
		if err != nil {
			return err
		}
		return reportState(st)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget stored credentials and leave local mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Logout(); err != nil {
			return err
		}
		printer.Success("Signed out")
		return nil
	},
}

var localCmd = &cobra.Command{
	Use:       "local <on|off>",
	Short:     "Use only the local copy, without an account",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "on":
			if err := application.SetLocalMode(true); err != nil {
				return err
			}
			printer.Success("Local mode on: reading from the local copy only")
		case "off":
			if err := application.SetLocalMode(false); err != nil {
				return err
			}
			printer.Success("Local mode off: run `reread login` to sign in")
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session and local cache state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := application.Session.State()
		if _, local := st.(auth.LocalMode); !local {
			st = application.Session.Restore(cmd.Context())
		}

		printer.Header("Session")
		printer.Print("%s", describeState(st))
		printer.Print("API: %s", cfg.API.BaseURL)
		if pair, ok := application.KV.Get(); ok {
			if exp, ok := auth.AccessTokenExpiry(pair.Access); ok {
				printer.Print("Access token expires %s", exp.Local().Format(time.DateTime))
			}
		}

		counts, err := application.Cache.Counts(cmd.Context())
		if err != nil {
			printer.Warning("Local cache unreadable: %v", err)
			return nil
		}
		printer.Header("Local copy")
		printer.Print("%d articles, %d tags, %d questions, %d actions",
			counts.Articles, counts.Tags, counts.Questions, counts.Actions)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&passwordFlag, "password", "p", "", "password (read from stdin when empty)")
	}
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, localCmd, statusCmd)
}

func readPassword(cmd *cobra.Command) (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func describeState(st auth.State) string {
	switch s := st.(type) {
	case auth.LoggedIn:
		return fmt.Sprintf("Signed in as %s <%s>", s.User.Username, s.User.Email)
	case auth.LoggedOut:
		return "Signed out"
	case auth.LocalMode:
		return "Local mode"
	case auth.Loading:
		return "Checking credentials"
	case auth.Error:
		return "Error: " + s.Message
	default:
		panic(fmt.Sprintf("unhandled auth state %T", st))
	}
}

// reportState prints the outcome of a login or registration.
func reportState(st auth.State) error {
	if e, ok := st.(auth.Error); ok {
		return errors.New(e.Message)
	}
	if _, ok := st.(auth.LoggedIn); ok {
		printer.Success("%s", describeState(st))
		return nil
	}
	return errors.New(describeState(st))
}
