package mcpserver

// RouteRulesContract describes the rules a route must satisfy so LLM
// consumers can build valid add_route calls.
const RouteRulesContract = `# Route Tree Rules

The tree holds airport route nodes. Every node has a code, an optional parent,
a position and a duration (distance in km from its parent).

## Rules

1. **Exactly one root.** The root has no parent, position ` + "`ROOT`" + ` and duration 0.
   Creating a second root fails; pick the existing root as parent instead.
2. **Children** have a parent, position ` + "`L`" + ` or ` + "`R`" + ` and a duration greater than 0.
3. **One child per side.** A parent holds at most one ` + "`L`" + ` child and one ` + "`R`" + ` child.
4. **Parents must exist.** ` + "`parent_id`" + ` is the id of a route already in the tree.
5. **Codes** are 1 to 10 characters (e.g. ` + "`DXB`" + `, ` + "`JFK`" + `).
6. Nodes cannot be moved or edited after creation.

## Queries

- ` + "`find_last_reachable`" + ` follows one direction (left or right) from a start node until
  no child exists that way. The start node itself is returned when it has no such child.
- ` + "`longest_duration`" + ` / ` + "`shortest_duration`" + ` scan the whole tree; ties go to the
  earliest created node.
- ` + "`route_depth`" + ` counts hops to the root (root is 0).
`
