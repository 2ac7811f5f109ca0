// Package orchestration provides a declarative composer for deterministic,
// safety-oriented task chains running on the kyron cooperative runtime.
//
// # Overview
//
// orchestration builds task trees from a small, uniform set of action
// kinds — Sequence, Concurrency, Select, IfElse, Switch, Invoke, Trigger,
// Sync, Catch, and LocalGraph — and drives them through a single contract:
// Execute(context.Context) error, plus a build-time Shape() report of each
// node's maximum concurrent child count and buffer sizes. There is no typed
// payload threaded through the tree; actions communicate through shared
// Conditions and the event bus, not return values.
//
// # Core Concepts
//
//   - Action: the uniform interface every node implements
//   - Design vs Deployment: action trees are built (design) independently
//     of which worker or transport they will run on (deployment); binding
//     happens once, before the tree's first Execute
//   - ReusableFuturePool: variable-fanout actions (Concurrency, Select,
//     LocalGraph) preallocate their child future slots at construction and
//     reuse them on every Execute call
//
// # Action Kinds
//
//   - Sequence: runs children in order, stops at the first error
//   - Concurrency: runs all children, cancels the rest on first error
//   - Select: runs all children, returns the first success, cancels losers
//   - IfElse: evaluates a Condition once, runs the matching branch
//   - Switch: dispatches on a discriminator to a registered case or default
//   - Invoke: runs a nullary Invocable, migrating to its pinned worker
//   - Trigger: notifies an event and returns immediately
//   - Sync: awaits a single pending notification on an event
//   - Catch: runs a child, routes matching errors to a recovery handler
//   - LocalGraph: runs a validated DAG of nodes, starting each node once
//     all of its dependencies have completed
//
// # Usage Example
//
//	retryCounter := 0
//	body := orchestration.NewCatch(
//	    "call-with-retry",
//	    orchestration.NewInvoke("call-api", callAPI),
//	    orchestration.MatchAny,
//	    orchestration.RecoverableHandler("bump-counter", func(ctx context.Context, _ error) error {
//	        retryCounter++
//	        return nil
//	    }),
//	)
//	err := body.Execute(ctx)
//
// # Error Handling
//
// Only Catch recovers; every other action propagates the first child error
// upward unchanged, accumulating a Path of action names as it goes
// (KernelError.Path), so a failure can always be traced back to the exact
// node that produced it.
//
// # Performance
//
// Fan-out actions do not allocate child future slots on their Execute path:
// they reuse a kyron.ReusableFuturePool sized once at construction, and
// cancellation is a context.Context cancel rather than a separate signaling
// allocation. Execute is not allocation-free: the derived context, the
// per-child task closures and the capitan log fields still allocate on
// every call.
package orchestration
