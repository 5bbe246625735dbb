package workflow

import (
	"context"

	"youdub/internal/stage"
)

// Health reports the readiness of every stage that exposes a health check.
func (p *Pipeline) Health(ctx context.Context) []stage.Health {
	var out []stage.Health
	for _, s := range p.stages {
		checker, ok := s.(stage.HealthChecker)
		if !ok {
			continue
		}
		out = append(out, checker.HealthCheck(ctx))
	}
	return out
}
