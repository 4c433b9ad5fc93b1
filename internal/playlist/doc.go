// Package playlist holds the in-memory per-chat track queues and exposes
// the operations the call coordinator drives them with.
//
// The Store owns one ordered queue per chat id. The element at position
// zero is the track currently streaming; everything behind it is pending.
// A chat with no entries reads as absent from Current and Snapshot, so
// "not queued" is represented by absence rather than by an empty queue.
//
// Mutation is serialized per chat id on that chat's own lock. Operations
// on different chats never contend on a shared mutation lock, and no lock
// is ever held across I/O; callers that need ordering across slow engine
// calls must provide it themselves (the coordinator's per-chat operation
// locks do).
package playlist
