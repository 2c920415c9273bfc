/*
Package ports defines the driven ports (interfaces) for the Parley engine.

These interfaces decouple the interpreter and the session loop from the outside
world: where workflows come from, how a conversation reaches the user, and the
collaborator services that classify, answer, raise tickets and keep logs.

# Key Interfaces

  - WorkflowLoader: Supplies the raw workflow document (file, memory).
  - Channel: A duplex conversation connection (websocket, terminal, memory).
  - Classifier, KnowledgeBase, Generator, Ticketing: Collaborators called by handlers.
  - ChatLog: The logging collaborator receiving transcripts and summaries.
  - TrackerStore: Optional durable snapshots of session trackers.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
