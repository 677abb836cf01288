// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, logging and telemetry layer for hioload-mq.
//
// Provides:
//   - YAML configuration with documented defaults (recv timeout, reactor
//     timeout, transport selection, log level, metrics)
//   - zap logger construction
//   - prometheus collectors for socket, poller and reactor activity
//
// The core packages never read configuration themselves; callers load it
// here and inject the values through functional options.
package control
