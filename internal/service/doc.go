// Package service contains the application use cases behind the CLI, the
// JSON API and the web dashboard. It orchestrates the task and settings
// stores, validates raw input coming from those surfaces, applies the
// dispatch gate and emits task events.
//
// The service package depends on domain entities and store interfaces, never
// on a specific storage implementation.
package service
