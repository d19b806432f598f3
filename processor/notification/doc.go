// Package notification turns the source's entity notifications into target
// instance events.
//
// A Consumer polls a Feed (a durable JetStream pull subscription in
// production) on a single goroutine and hands every raw notification to the
// Dispatcher in feed order, committing each batch once it has been handled.
//
// For each notification the Dispatcher:
//
//  1. decodes the envelope, discarding malformed input and envelopes of
//     another major version
//  2. discards notifications for placeholder entities
//  3. discards notifications for entities owned by another metadata
//     collection
//  4. for a delete in hard-delete mode, resolves the entity type by name and
//     reports a purge without reading the entity
//  5. otherwise reads the entity, translates it to an EntityDetail and
//     invokes exactly one Handler method for the operation
//
// Any failure drops the notification with a log line and a discard metric
// labelled with the reason. Nothing is retried: the source's notification
// is the unit of work, and a failed one is never redelivered by the
// consumer. Handler errors and panics are contained the same way.
//
// Refresh and RefreshGUID push a single entity through RefreshedEntity
// outside the notification flow and return their errors to the caller.
package notification
