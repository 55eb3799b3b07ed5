/*
Package ports defines the interfaces the session controller depends on and
the one it offers to front-ends.

These interfaces decouple the controller from transports, persistence
backends and user interfaces.

# Key Interfaces

  - Connection: the channel to the debuggee (memory, socket, Redis Pub/Sub).
  - Observer: receives every state change the controller reconciles.
  - BreakpointRepository: persists breakpoint snapshots between runs.
  - DistributedLocker: keeps two controllers from driving the same debuggee.
  - Session: the controller as seen by HTTP, MCP, Lua and the console.
*/
package ports
