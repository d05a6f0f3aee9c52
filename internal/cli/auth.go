package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authPassword string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your station account",
	Long:  `Commands for signing up, logging in and inspecting your session.`,
}

var authSignupCmd = &cobra.Command{
	Use:   "signup <username>",
	Short: "Create an account on the station",
	Long:  `Creates an account on the running station and logs you in.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthSignup,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to the station",
	Long:  `Logs in to the running station and stores the session locally.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Long:  `Removes the stored session from the local machine.`,
	RunE:  runAuthLogout,
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Long:  `Shows the stored session, if any.`,
	RunE:  runAuthWhoami,
}

func init() {
	authSignupCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")

	authCmd.AddCommand(authSignupCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSignup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	username := args[0]

	password := authPassword
	if password == "" {
		var err error
		password, err = readPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	session, err := c.Signup(ctx, username, password)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status":     "signed_up",
			"user_id":    session.UserID,
			"username":   session.Username,
			"expires_at": session.ExpiresAt,
		})
	}
	fmt.Printf("Signed up as %s\n", session.Username)
	return nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	username := args[0]

	password := authPassword
	if password == "" {
		var err error
		password, err = readPassword("Password: ")
		if err != nil {
			return err
		}
	}

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	session, err := c.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status":     "logged_in",
			"user_id":    session.UserID,
			"username":   session.Username,
			"expires_at": session.ExpiresAt,
		})
	}
	fmt.Printf("Logged in as %s (session expires %s)\n",
		session.Username, session.ExpiresAt.Local().Format("Jan 2 15:04"))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	if c.Session() == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "not_authenticated"})
		} else {
			fmt.Println("Not logged in.")
		}
		return nil
	}

	if err := c.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "logged_out"})
	} else {
		fmt.Println("Logged out.")
	}
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	session := c.Session()
	if session == nil {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"authenticated": false,
			})
		} else {
			fmt.Println("Not logged in.")
			fmt.Println("Run 'murex auth login <username>' to sign in.")
		}
		return nil
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"authenticated": true,
			"expired":       session.IsExpired(),
			"user_id":       session.UserID,
			"username":      session.Username,
			"expires_at":    session.ExpiresAt,
		})
	}
	fmt.Printf("Logged in as: %s\n", session.Username)
	fmt.Printf("Session expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
	if session.IsExpired() {
		fmt.Println("Session expired. Run 'murex auth login' to sign in again.")
	}
	return nil
}

// readPassword prompts on stderr and reads without echo on a terminal.
// Piped stdin falls back to a plain line read.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
