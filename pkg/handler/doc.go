/*
Package handler implements the behaviour bound to each node of a conversation graph.

Every node type maps to exactly one Handler variant through a closed lookup
table (see Registry). Handlers share one contract:

	Execute(ctx, value, tracker) -> Result{Output, Intent}

Output, when present, is written by the session to every tracker key listed in
the handler's SavingKeys. Intent, when present, selects among the children of a
branching node. Handlers that call collaborators (Qa, Ai, Ticket) degrade to the
"fail" intent on service errors; Decider lets classifier errors propagate.
*/
package handler
