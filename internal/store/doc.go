// Package store defines the persistence interfaces for tasks and settings.
// These interfaces keep the queue and dispatch logic independent of the
// database technology; internal/platform/postgres provides the implementations.
package store
