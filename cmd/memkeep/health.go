package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// healthProbe is a named backend check such as mongo.Healthcheck(client).
type healthProbe struct {
	name  string
	check func(context.Context) error
}

type healthProbes []healthProbe

func (p *healthProbes) add(name string, check func(context.Context) error) {
	*p = append(*p, healthProbe{name: name, check: check})
}

// check runs every probe under timeout and joins the failures.
func (p healthProbes) check(ctx context.Context, timeout time.Duration) error {
	var errs []error
	for _, probe := range p {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := probe.check(probeCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", probe.name, err))
		}
	}
	return errors.Join(errs...)
}

// monitor re-checks the backends every interval until ctx is done. Failures
// are logged; jobs keep their own store error handling.
func (p healthProbes) monitor(ctx context.Context, interval, timeout time.Duration, log *slog.Logger) {
	if interval <= 0 || len(p) == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.check(ctx, timeout)
			switch {
			case err != nil && ctx.Err() == nil:
				log.ErrorContext(ctx, "backend healthcheck failed", logger.Error(err))
				healthy = false
			case err == nil && !healthy:
				log.InfoContext(ctx, "backends healthy again")
				healthy = true
			}
		}
	}
}
