package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omarluq/authgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server.
Checks syntax, the auth strategy, the session repository and the user list.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return validateConfigFile(cmd.OutOrStdout(), configPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default config file",
	Long: `Generate a default configuration at ~/.config/authgate/config.yaml.
A .toml output path writes TOML instead of YAML.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/authgate/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")

	configCmd.AddCommand(configValidateCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func validateConfigFile(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(out, "✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Fprintf(out, "✓ %s is valid (auth: %s, users: %d)\n", path, cfg.Auth.GetType(), len(cfg.Users))
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		output = filepath.Join(home, ".config", appName, defaultConfigFile)
	}
	return writeDefaultConfig(cmd.OutOrStdout(), output, force)
}

// writeDefaultConfig renders config.Default in the format implied by
// output's extension.
func writeDefaultConfig(out io.Writer, output string, force bool) error {
	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", output, err)
	}

	format := config.FormatYAML
	if filepath.Ext(output) == ".toml" {
		format = config.FormatTOML
	}
	data, err := config.Marshal(config.Default(), format)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "✓ Config file created at %s\n", output)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Hash a password: %s passwd\n", appName)
	fmt.Fprintln(out, "  2. Add users and pick auth.type in the config file")
	fmt.Fprintf(out, "  3. Validate with: %s config validate\n", appName)
	fmt.Fprintf(out, "  4. Start the server: %s serve\n", appName)
	return nil
}
