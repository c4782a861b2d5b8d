// Package model defines the shared domain types: subscriptions, per-endpoint
// poll metadata, raw entities fetched from the remote API, and the classified
// change events handed to the dispatcher.
package model
