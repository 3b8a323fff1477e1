package model

import (
	"context"
	"runtime"

	"modelcore/internal/status"
)

// run is the instance thread. It is pinned to one OS thread so the nice
// value applies to it alone, waits until the instance enters service and
// then serves payloads until ctx is cancelled. A payload already taken is
// always executed and released.
func (i *Instance) run(ctx context.Context) {
	defer close(i.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	nice := i.model.nice
	if err := setThreadNice(nice); err != nil {
		i.log.Info().Err(err).Msgf("starting backend thread for %s at default nice (requested nice %d failed)", i.spec.name, nice)
	} else {
		i.log.Info().Int("nice", nice).Msgf("starting backend thread for %s at nice %d", i.spec.name, nice)
	}

	select {
	case <-ctx.Done():
		return
	case <-i.activated:
	}
	work := i.model.workSource()
	if work == nil {
		i.log.Error().Msg("instance activated without a scheduler")
		return
	}
	for {
		p, err := work.Dequeue(ctx, i)
		if err != nil {
			if ctx.Err() == nil && !status.IsUnavailable(err) {
				i.log.Error().Err(err).Msg("dequeue failed")
			}
			return
		}
		execErr := i.execute(p.Requests)
		if execErr != nil {
			i.log.Warn().Err(execErr).Int("requests", len(p.Requests)).Msg("execute failed")
		}
		work.Release(p, execErr)
	}
}
