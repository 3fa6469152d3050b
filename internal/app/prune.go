package app

import (
	"context"

	"envrun/internal/registry"
)

// Prune removes descriptors left behind by supervising instances that are no
// longer running.
func (a *App) Prune(ctx context.Context) ([]registry.Descriptor, error) {
	removed, err := a.reg.Prune(ctx, processAlive)
	if err != nil {
		return nil, err
	}
	for _, d := range removed {
		a.logger.Info("removed stale descriptor", "pid", d.PID, "name", d.Name)
	}
	return removed, nil
}
