// Package domain contains the core entities of the task queue: tasks with
// their lifecycle states, and the key-value settings that drive dispatch.
// It is independent of any storage or delivery mechanism.
package domain
