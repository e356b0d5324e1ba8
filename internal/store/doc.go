// Package store defines the persistence contracts of the notification engine:
// the durable email queue and the reminder candidate/dedup log. Implementations
// live in platform packages; this package also provides the shared transaction
// helper used by every store-backed operation.
package store
