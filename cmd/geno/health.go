package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/genogram/internal/http"
)

func newHealthCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check genogramd server health",
		Long: `Check the health status of a genogramd HTTP server.

Examples:
  # Check health
  geno health

  # Check health on a different server
  geno health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd, serverURL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:9191", "genogramd server URL")
	return cmd
}

func runHealth(cmd *cobra.Command, serverURL string) error {
	url := strings.TrimRight(serverURL, "/") + "/health"

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var health httpserver.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHealth(serverURL, health))
	return err
}
