// Package notify turns overall status transitions into user-facing
// notifications.
//
// A Notifier subscribes to the engine's change events, consults the
// Preferences gate and writes Notification records to an Inbox. The gate is
// persisted in a kv.Store and defaults to enabled when nothing was saved.
//
// RedisSink is an independent health.EventSink that forwards every event to
// a Redis pub/sub channel for other processes.
package notify
