package stage

import "context"

// Health summarizes the readiness of a stage's external dependencies.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthChecker is implemented by stages that depend on an external tool or
// service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
