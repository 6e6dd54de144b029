package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/omarluq/authgate/internal/users"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd [password]",
	Short: "Hash a password for the users section of the config",
	Long: `Print a bcrypt hash for password_hash. The password is read from the
argument, or from the first line of stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := cmd.Flags().GetInt("cost")
		if err != nil {
			return fmt.Errorf("failed to get cost flag: %w", err)
		}
		return hashPassword(cmd.InOrStdin(), cmd.OutOrStdout(), args, cost)
	},
}

func init() {
	passwdCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	rootCmd.AddCommand(passwdCmd)
}

func hashPassword(in io.Reader, out io.Writer, args []string, cost int) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	hash, err := users.HashPassword(password, cost)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
