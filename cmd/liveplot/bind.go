package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sliink/liveplot/internal/api"
)

func newBindCmd(_ *options) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:     "bind [flags] -- --list KEY [KEY] [--target NAME] [--open]",
		Short:   "Ask a running server to keep a plot bound to its lists",
		Example: "  liveplot bind --server http://127.0.0.1:8080 -- --list la --target key:la_plot --open",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := bind(server, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "Base URL of a running liveplot server")
	return cmd
}

func bind(server string, args []string) (string, error) {
	body, err := json.Marshal(api.PlotRequest{Args: args})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(strings.TrimRight(server, "/")+"/bind", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var failure api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			return "", fmt.Errorf("bind failed: %s", resp.Status)
		}
		return "", fmt.Errorf("bind failed: %s", failure.Error)
	}

	var accepted api.BindResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("decode bind response: %w", err)
	}
	return accepted.ID, nil
}
