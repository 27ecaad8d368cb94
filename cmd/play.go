package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/zalun/karaoke-engine/internal/models"
	"github.com/zalun/karaoke-engine/internal/shared"
)

// Resolve fetches a direct stream URL for a single media reference.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("media-ref")
	if ref == "" {
		return fmt.Errorf("%w: media reference", shared.ErrMissingArgument)
	}
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	origin, mediaRef := models.InferOrigin(ref)
	if origin == models.OriginLocal {
		return fmt.Errorf("%w: local files do not need resolution", shared.ErrInvalidInput)
	}

	r.logger.Info("resolving media reference", "ref", mediaRef, "origin", origin)
	stream, err := r.streamResolver().Resolve(ctx, mediaRef)
	if err != nil {
		return err
	}

	return r.writeJSON(map[string]any{
		"origin":     origin.String(),
		"media_ref":  mediaRef,
		"url":        stream.URL,
		"expires_in": stream.ExpiresIn,
	}, cmd.Bool("pretty"))
}

// Play queues the given media references and plays them back to back,
// exiting when the queue drains or playback halts on a terminal fault.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one media reference", shared.ErrMissingArgument)
	}
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	for _, ref := range refs {
		origin, mediaRef := models.InferOrigin(ref)
		r.queue.Add(models.PlaybackItem{
			ID:       shared.GenerateID(),
			Title:    mediaRef,
			Origin:   origin,
			MediaRef: mediaRef,
		})
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl, _, shutdown := r.engine()
	defer shutdown()

	events := ctrl.Subscribe()
	go ctrl.Run(ctx)

	first := r.queue.Advance()
	if first == nil {
		return shared.ErrQueueEmpty
	}
	if err := ctrl.LoadAndPlay(*first); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Type {
			case models.EventTrackStarted:
				r.writePlainln("▶ %s", ev.Item.Title)
			case models.EventNotice:
				r.logger.Warn(ev.Notice)
			case models.EventHalted:
				return fmt.Errorf("playback halted: %w", ev.Err)
			case models.EventQueueEmpty:
				return r.writePlainln("✓ Queue finished")
			}
		}
	}
}
