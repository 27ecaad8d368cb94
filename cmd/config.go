package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/shared"
)

// ConfigInit writes the embedded starter configuration to disk.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("configuration created", "path", path)
	return r.writePlain("✓ Wrote %s\n", path)
}

// ConfigShow prints the effective configuration after loading the file, so
// the output reflects what a session would actually run with.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}
	return r.writeJSON(r.config.Get(), cmd.Bool("pretty"))
}
