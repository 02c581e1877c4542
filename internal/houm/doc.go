// Package houm implements the bridge core against the Houm cloud
// service: snapshot discovery over HTTP, a persistent named-event
// stream for push updates and outbound commands, and the controller
// that reconciles both paths into the light registry.
//
// # Components
//
//   - Socket: websocket event-stream client (connect, emit, on,
//     disconnect) speaking {"event", "data"} JSON frames.
//   - FetchSiteInfo: synchronous snapshot fetch of the site document.
//   - Poller: cancellable fixed-interval timer driving discovery.
//   - Controller: the orchestrator owning the socket, the poller and
//     the registry.
//
// # Concurrency
//
// Exactly two persistent background goroutines exist per controller:
// the poller loop and the socket receive loop. Stop and Disconnect
// have join semantics, so no callback runs after they return. No
// ordering is enforced between a discovery pass and a concurrently
// arriving push update; the registry is last-writer-wins on live
// state.
//
// # Failure model
//
// All failure handling is local containment: snapshot failures skip
// one pass, connection loss triggers reconnection governed by the
// configured policy, malformed push events are dropped. Nothing
// propagates past the controller boundary; the bridge favours
// availability over surfacing errors.
package houm
