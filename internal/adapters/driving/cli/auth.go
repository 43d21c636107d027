package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the service",
	Long: `Log in with your email and password. The credential pair is stored
in the data directory and renewed automatically when it expires.

Examples:
  brain login
  brain login --email me@example.com
  echo "$PASSWORD" | brain login --email me@example.com --password-stdin`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored credentials",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

// Flags for login.
var (
	loginEmail         string
	loginPasswordStdin bool
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return fmt.Errorf("auth service %w", errNotConfigured)
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	email := strings.TrimSpace(loginEmail)
	if email == "" {
		cmd.Print("Email: ")
		email = readLine(reader)
	}

	var password string
	if loginPasswordStdin {
		password = readLine(reader)
	} else {
		cmd.Print("Password: ")
		password = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	user, err := authService.Login(commandContext(cmd), email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s\n", user.DisplayName())
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return fmt.Errorf("auth service %w", errNotConfigured)
	}

	if err := authService.Logout(commandContext(cmd)); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	cmd.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return fmt.Errorf("auth service %w", errNotConfigured)
	}

	user, err := restoreSession(cmd)
	if err != nil {
		return err
	}

	cmd.Printf("%s <%s>\n", user.DisplayName(), user.Email)
	if !user.IsVerified {
		cmd.Println("Email address not verified.")
	}
	return nil
}

// restoreSession loads the stored credentials and fetches the current user.
func restoreSession(cmd *cobra.Command) (*domain.User, error) {
	user, err := authService.Restore(commandContext(cmd))
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrSessionExpired):
		return nil, errors.New("not logged in, run 'brain login'")
	default:
		return nil, fmt.Errorf("restore session: %w", err)
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(reader)
}
