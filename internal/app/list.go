package app

import (
	"context"
)

// ListParams defines filters.
type ListParams struct {
	Filters ListFilters
}

// List returns registry entries matching the provided filters, with liveness.
func (a *App) List(ctx context.Context, params ListParams) ([]Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err := params.Filters.predicate()
	if err != nil {
		return nil, err
	}
	descs, err := a.reg.List(pred)
	if err != nil {
		return nil, err
	}

	procs := make([]Process, 0, len(descs))
	for _, d := range descs {
		p := Process{Descriptor: d, Alive: processAlive(d.PID)}
		if params.Filters.AliveOnly && !p.Alive {
			continue
		}
		procs = append(procs, p)
	}
	return procs, nil
}
