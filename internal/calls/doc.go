// Package calls coordinates live streaming calls against per-chat playlists.
//
// The Coordinator owns the call state machine: starting and ending calls,
// pausing and resuming the active stream, skipping tracks, and advancing
// the playlist when a track finishes. It talks to the call engine, the
// media resolver, and the chat configuration store through narrow
// interfaces so each can be faked in tests.
//
// The Dispatcher delivers engine lifecycle events to the Coordinator with
// per-chat ordering: events for one chat are handled strictly in arrival
// order, while different chats proceed independently.
package calls
