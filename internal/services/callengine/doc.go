// Package callengine talks to the streaming call engine's HTTP API.
//
// The Client covers call management and stream control; the EventStream
// consumes the engine's line-delimited JSON event feed and forwards each
// lifecycle event to the dispatcher, reconnecting with a fixed delay when
// the feed drops.
package callengine
