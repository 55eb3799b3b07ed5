/*
Package observability exposes debugger session activity as Prometheus metrics.

Metrics are fed by domain.LifecycleHooks, so any controller configured with
session.WithLifecycleHooks(metrics.Hooks()) reports commands sent and dropped,
events applied with their apply latency, breakpoint transitions and
connection failures.
*/
package observability
