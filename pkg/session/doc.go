/*
Package session runs conversations over a flow graph.

A Session owns one conversation's Tracker and walks the graph it is bound
to, exchanging messages with the client over a ports.Channel. Its lifecycle
is CREATED, RUNNING (after Init) and TERMINATED (when Run returns).

The Manager is the concurrency-safe registry of active sessions. It hands
finished transcripts to the logging collaborator, optionally snapshots
trackers to a ports.TrackerStore and serialises per-session operations with
ref-counted local locks and an optional ports.DistributedLocker.
*/
package session
