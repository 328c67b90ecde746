package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vkdumper/pkg/auth"
)

var authAccount string

// authCmd groups the token management subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored VK access tokens",
	Long: `Store and remove VK API access tokens.

Tokens are kept in the system keychain when one is available, with an
encrypted file (keyed by VKDUMP_STORE_KEY) as fallback.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := promptToken()
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		if err := manager.Store(&auth.Account{
			Name:         authAccount,
			AccessToken:  token,
			LastModified: time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Printf("Token stored for account %q\n", authAccount)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		if err := manager.Delete(authAccount); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}

		fmt.Printf("Token removed for account %q\n", authAccount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)

	authCmd.PersistentFlags().StringVarP(&authAccount, "account", "a", auth.DefaultAccount, "account name")
}

// promptToken reads the token without echoing when stdin is a terminal
func promptToken() (string, error) {
	fmt.Print("Access token (hidden): ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
