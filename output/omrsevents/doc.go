// Package omrsevents publishes the bridge's downstream instance events.
//
// Publisher implements notification.Handler. Every call becomes one
// InstanceEvent with a fresh event id and the bridge's identity as
// originator, serialised to JSON and sent to <prefix>.<event type>, for
// example omrs.events.NEW_ENTITY_EVENT.
//
// Events go to a Sink. In production the sink is the NATS client, which
// publishes to a JetStream stream capturing the prefix. Journal is a file
// sink writing one JSON line per event, used for local runs without an
// event stream:
//
//	{"subject":"omrs.events.PURGED_ENTITY_EVENT","event":{...}}
//
// A failed publish is returned to the dispatcher as a transient error and
// counted in atlasbridge_events_publish_errors_total.
package omrsevents
