/*
Package session implements document sessions and the workspace that holds them.

A Session owns exactly one text buffer and one tree model, linked by a
synchronizer, and tracks whether either view has edits that were not saved.
The Manager keeps the ordered set of open documents (tabs), serializes access
to each document with reference-counted locks, optionally coordinated across
replicas by a distributed locker, and persists drafts to a DraftStore.
*/
package session
