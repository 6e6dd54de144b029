package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/authgate/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the authgate server is running",
	Long: `Check the health of a running authgate server by querying its /health
endpoint.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return checkStatus(cmd.Context(), cmd.OutOrStdout(), configPath())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func checkStatus(ctx context.Context, out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+cfg.Server.Listen+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(out, "✗ %s is not running (%s)\n", appName, cfg.Server.Listen)
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode == http.StatusOK {
		fmt.Fprintf(out, "✓ %s is running (%s)\n", appName, cfg.Server.Listen)
		return nil
	}

	fmt.Fprintf(out, "✗ %s returned unexpected status: %d\n", appName, resp.StatusCode)
	return fmt.Errorf("health check failed with status %d", resp.StatusCode)
}
