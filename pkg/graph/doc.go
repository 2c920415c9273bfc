/*
Package graph turns a workflow document into the immutable node index a
session walks.

A document is either a bare map of node id to node record or the editor
envelope {"drawflow": {"<module>": {"data": {...}}}}, in JSON or YAML. Build
resolves every record's class through a handler.Registry, renames the start
node to domain.StartNodeID and wires parent/child edges in document order.

Routing (Graph.Next) follows three rules:

  - no children: the walk is over;
  - one child: that child, whatever the intent;
  - several children: the first child whose handler is labelled with the intent.

A Graph is shared read-only by every session bound to it.
*/
package graph
