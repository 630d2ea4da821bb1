// Package image ensures the requested container image is present locally.
package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	imagetypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/quarantinehq/quarantine/internal/quarantine/engine"
)

// Provisioner pulls images through the engine and narrates progress.
type Provisioner struct {
	api engine.API
}

// NewProvisioner creates a Provisioner backed by the given engine.
func NewProvisioner(api engine.API) *Provisioner {
	return &Provisioner{api: api}
}

// Ensure pulls ref, consuming the pull-progress event stream to completion.
//
// Per-layer errors reported inside the stream are logged and skipped: engines
// route benign conditions (already-cached layers, registry warnings) through
// the same channel as hard failures, and the only reliable failure signal is
// the transport itself breaking. Ensure returns an error only when the pull
// cannot start or the stream terminates abnormally.
func (p *Provisioner) Ensure(ctx context.Context, ref string) error {
	stream, err := p.api.ImagePull(ctx, ref, imagetypes.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer stream.Close()

	slog.Info("pulling image", "image", ref)

	dec := json.NewDecoder(stream)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("pull stream for %s: %w", ref, err)
		}

		if msg.Error != nil {
			slog.Error("pull event failed", "image", ref, "error", msg.Error.Message)
			if msg.Error.Code != 0 {
				slog.Error("pull event detail", "code", msg.Error.Code, "message", msg.Error.Message)
			}
			continue
		}

		attrs := []any{"id", msg.ID, "status", msg.Status}
		if msg.Progress != nil {
			attrs = append(attrs, "progress", msg.Progress.String())
		}
		slog.Info("pull progress", attrs...)
	}
}
