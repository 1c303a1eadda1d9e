// Package events decouples the screening service from the background work
// triggered by its state changes.
//
// The service emits an Event when something noteworthy happens (a screening
// reaches its result); handlers subscribed to that event type react to it,
// typically by queueing a task. Emitters know nothing about the handlers.
package events
