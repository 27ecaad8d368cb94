package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/formatter"
	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// controlURL builds a control API endpoint URL from the server configuration.
func controlURL(cfg shared.ServerConfig, path string) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d%s", host, cfg.Port, path)
}

// Export snapshots the rotation from a running session's control API and
// writes it as a csv, markdown or text sheet.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	var write func(*formatter.RotationSheet, string) (string, error)
	switch format := cmd.String("format"); format {
	case "csv":
		write = formatter.WriteCSVExport
	case "markdown", "md":
		write = formatter.WriteMarkdownExport
	case "text", "txt":
		write = formatter.WriteTextExport
	default:
		return fmt.Errorf("%w: format must be csv, markdown or text, got %q", shared.ErrInvalidFlag, format)
	}

	endpoint := controlURL(r.config.Get().Server, "/api/status")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("no session reachable at %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session returned status %d", resp.StatusCode)
	}

	var status struct {
		State models.TransportState `json:"state"`
		Queue []models.PlaybackItem `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode session status: %w", err)
	}

	sheet := formatter.NewRotationSheet(cmd.String("title"), status.State, status.Queue)
	path, err := write(sheet, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("rotation exported", "path", path, "queued", len(status.Queue))
	return r.writePlain("✓ Exported rotation to %s\n", path)
}
