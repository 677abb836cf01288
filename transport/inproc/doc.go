// Package inproc
// Author: momentics <momentics@gmail.com>
//
// In-process messaging transport implementing the api.Transport boundary
// without any external library. Endpoints are named "inproc://<name>" and
// are scoped to the native context they were bound in; connecting before
// the peer binds is allowed and resolved at bind time.
//
// Supported patterns: PAIR, PUB/SUB (prefix subscriptions), XPUB/XSUB (as
// PUB/SUB), REQ/REP, DEALER/ROUTER (identity envelope on ROUTER) and
// PUSH/PULL. Multi-frame messages are delivered atomically to one peer once
// the last frame is sent. High-water marks are recorded but not enforced.
package inproc
