// Package chatstore persists per-chat configuration in SQLite.
//
// Each chat carries an owner, a language tag, a quality preference, and an
// admin-only flag. The store is the single writer for this data; the call
// coordinator only reads the quality preference when resolving a stream
// source. Chats are keyed by their numeric id; negative ids are group
// chats, positive ids direct chats.
package chatstore
