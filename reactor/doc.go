// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor runs one poller on a dedicated goroutine and dispatches
// readiness to per-handle callbacks. Other goroutines interact with it only
// by queueing closures, which the loop drains before every wait.
package reactor
