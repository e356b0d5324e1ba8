// Package domain contains the core entities of the notification engine: queued
// emails and their retry state machine, reminder log entries and the read-only
// reminder candidate view over tasks. It is independent of any specific
// infrastructure or delivery mechanism.
package domain
