/*
Package parley runs chatbot conversations defined as a graph of typed nodes.

A workflow document (JSON or YAML) describes nodes such as text, listen,
decider or ticket, and the edges between them. Parley builds it into an
immutable Graph shared by every conversation, and walks one Session per
connected client: each node's handler runs against the session tracker, its
output is sent to the client, and the intent it produces picks the next node.

# Architecture

  - pkg/graph: document parsing, graph building, routing and validation.
  - pkg/handler: the node handlers and their registry.
  - pkg/session: the per-conversation state machine and the session registry.
  - pkg/ports and pkg/adapters: channels, collaborators and storage.

# Usage

	loader, err := file.NewLoader("workflow.json")
	if err != nil {
		log.Fatal(err)
	}
	bot, err := parley.New(
		parley.WithLoader(loader),
		parley.WithClassifier(rest.NewClassifier(rest.Endpoint{URL: classifierURL})),
	)
	if err != nil {
		log.Fatal(err)
	}

	// One call per connected client.
	err = bot.Converse(ctx, channel, sessionID, "web", nil)

The Channel decides how messages reach the user: a websocket, the terminal,
or an in-memory pipe in tests.
*/
package parley
