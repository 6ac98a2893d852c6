// Package events provides the in-process event plumbing for task changes.
//
// Services emit a TaskEvent whenever they create, claim or update a task.
// Handlers registered on the emitter receive every event; Broker is the
// handler that fans events out to live-view subscribers.
//
// The primary components are:
// - TaskEvent: A change to a single task
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - Broker: Fan-out of events to subscriber channels
package events
