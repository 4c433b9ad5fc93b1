// Package notifications posts call lifecycle events to an optional webhook.
//
// The coordinator reports state transitions here on a best-effort basis;
// delivery failures are logged by callers and never block playback.
package notifications
