/*
Package domain contains the core models of the Parley conversation engine.

It defines the entities shared by the graph interpreter and the session loop,
such as the Tracker, chat messages and the records handed to the logging
collaborator. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Tracker: the per-session key/value conversation state.
  - ChatMessage: one transcript entry, either content (USER/AI) or a protocol signal.
  - MessageRecord, SessionRecord, TicketRecord, FeedbackRecord: what gets persisted.
  - LifecycleHooks: callbacks for observability (metrics, debug logging, streaming).
*/
package domain
