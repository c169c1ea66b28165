package users

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/crucial707/book-catalog/cmd/cli/client"
	"github.com/crucial707/book-catalog/cmd/cli/config"
	"github.com/spf13/cobra"
)

// ==========================
// CLI Command Init
// ==========================

// InitUsers attaches the users command tree to root.
func InitUsers(root *cobra.Command) {
	root.AddCommand(NewUsersCmd())
}

func NewUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users and authentication",
		Long: `Register or login a user against the book catalog API.
Stores the access token locally for future commands.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Long:  "Register a new user with username and password. Missing values are prompted for.",
		RunE:  runRegister,
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Login an existing user",
		Long:  "Login and save the access token locally for future CLI commands.",
		RunE:  runLogin,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Logout current user",
		Long:  "Remove the locally saved access token.",
		RunE:  runLogout,
	}

	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE:  runMe,
	}

	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringP("username", "u", "", "Username")
		c.Flags().StringP("password", "p", "", "Password")
	}

	usersCmd.AddCommand(registerCmd, loginCmd, logoutCmd, meCmd)
	return usersCmd
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ==========================
// Register User
// ==========================
func runRegister(cmd *cobra.Command, args []string) error {
	creds, err := readCredentials(cmd)
	if err != nil {
		return err
	}

	var u user
	if err := client.New().JSON(cmd.Context(), http.MethodPost, "/register", creds, &u); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %q registered (id %d). You can now login.\n", u.Username, u.ID)
	return nil
}

// ==========================
// Login User
// ==========================
func runLogin(cmd *cobra.Command, args []string) error {
	creds, err := readCredentials(cmd)
	if err != nil {
		return err
	}

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := client.New().JSON(cmd.Context(), http.MethodPost, "/login", creds, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("token not returned by API")
	}

	if err := config.SaveToken(result.AccessToken); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Login successful! Token saved to %s (expires in %ds).\n", config.TokenPath(), result.ExpiresIn)
	return nil
}

// ==========================
// Logout User
// ==========================
func runLogout(cmd *cobra.Command, args []string) error {
	removed, err := config.RemoveToken()
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully.")
	return nil
}

func runMe(cmd *cobra.Command, args []string) error {
	c, err := client.Authenticated()
	if err != nil {
		return err
	}
	var u user
	if err := c.JSON(cmd.Context(), http.MethodGet, "/users/me", nil, &u); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", u.Username, u.ID)
	return nil
}

// readCredentials takes --username/--password and prompts on the command's input for
// whichever is missing.
func readCredentials(cmd *cobra.Command) (credentials, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	in := bufio.NewReader(cmd.InOrStdin())
	var err error
	if username == "" {
		if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
			return credentials{}, err
		}
	}
	if password == "" {
		if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
			return credentials{}, err
		}
	}
	if username == "" || password == "" {
		return credentials{}, fmt.Errorf("username and password are required")
	}
	return credentials{Username: username, Password: password}, nil
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
