/*
Package bugjar is a controller for remotely debugged processes.

It sits between a running debuggee and any number of observers (a console,
a script, an HTTP or MCP client) and keeps a consistent local model of the
debugging session: which breakpoints exist and how they should be displayed,
where execution currently is, and whether the session is usable at all.

# Architecture

bugjar follows a hexagonal layout. The core lives in pkg:

  - pkg/domain: breakpoints, positions, events, commands and sentinel errors.
  - pkg/breakpoint: the canonical breakpoint store.
  - pkg/session: the Controller, the only component that mutates state.
  - pkg/ports: the interfaces the Controller depends on (Connection, Observer,
    BreakpointRepository, DistributedLocker) and the one it offers (Session).

Adapters plug into those ports:

  - pkg/adapters/memory, socket, redis: debuggee connections.
  - pkg/adapters/memory, file, redis, sqlite: breakpoint persistence.
  - pkg/adapters/http, mcp: remote front-ends for a Session.
  - pkg/scripting: Lua automation.

The bugjar command (cmd/bugjar) wires these together from a YAML config.

# Usage

	ctl, err := bugjar.Attach(ctx, "127.0.0.1:3742",
		bugjar.WithLogger(logger),
		bugjar.WithObserver(observer.NewLogger(logger)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer ctl.Close()

	_ = ctl.ToggleBreakpoint(ctx, "app.py", 10)
	_ = ctl.Run(ctx)

Events coming back from the debuggee are applied in arrival order by a single
goroutine and fanned out to the Observer.
*/
package bugjar
