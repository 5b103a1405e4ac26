// Package device manages the connection to one Ooler peripheral and keeps a
// State snapshot in sync with it.
//
// A Device owns exactly one transport session at a time. Connect and Stop are
// serialized by a per-instance mutex; concurrent Connect calls collapse into a
// single transport connect. After connecting, every mapped characteristic is
// read once, notifications are subscribed, and an idle timer is armed that
// drops the link after a period without activity.
//
// State changes from polls, notifications, commands and link drops all go
// through one change-gated update: registered callbacks fire only when the new
// snapshot differs from the stored one, in the order the updates happened.
//
// Callbacks run synchronously on the goroutine that produced the update
// (often the transport's notification path). They may read Device.State and
// unregister themselves but must not call Connect, Stop, Poll or the setters
// directly; hand such work to another goroutine.
package device
