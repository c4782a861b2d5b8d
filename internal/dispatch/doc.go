// Package dispatch delivers classified change events to the downstream
// consumer.
//
// The Dispatcher formats the typed event name into its wire form and hands
// the opaque entity payload to a Sink. Four sinks are provided: structured
// log (default), HTTP webhook, Redis Stream, and websocket push. Per-event
// failures are returned to the caller for logging and counting; they never
// abort sibling events.
package dispatch
