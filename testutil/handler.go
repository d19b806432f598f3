package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/planetf1/atlas-sub002/types/omrs"
)

// Downstream event names recorded by RecordingHandler.
const (
	EventNew          = "NewEntity"
	EventUpdated      = "UpdatedEntity"
	EventDeleted      = "DeletedEntity"
	EventPurged       = "PurgedEntity"
	EventClassified   = "ClassifiedEntity"
	EventReclassified = "ReclassifiedEntity"
	EventDeclassified = "DeclassifiedEntity"
	EventRefreshed    = "RefreshedEntity"
)

// HandlerCall is one recorded downstream event.
type HandlerCall struct {
	Event    string
	Identity omrs.Identity
	Entity   *omrs.EntityDetail
	Old      *omrs.EntityDetail

	// Set for purges only.
	TypeGUID string
	TypeName string
	GUID     string
}

// RecordingHandler records the downstream events it receives. An error or a
// panic can be injected for a given event.
type RecordingHandler struct {
	mu     sync.Mutex
	calls  []HandlerCall
	errs   map[string]error
	panics map[string]bool
	notify chan struct{}
}

// NewRecordingHandler creates an empty handler.
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{
		errs:   make(map[string]error),
		panics: make(map[string]bool),
		notify: make(chan struct{}, 1),
	}
}

// FailOn makes the handler return err for event.
func (h *RecordingHandler) FailOn(event string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs[event] = err
}

// PanicOn makes the handler panic for event.
func (h *RecordingHandler) PanicOn(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics[event] = true
}

// Calls returns a copy of the recorded events.
func (h *RecordingHandler) Calls() []HandlerCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HandlerCall, len(h.calls))
	copy(out, h.calls)
	return out
}

// Events returns the recorded event names in order.
func (h *RecordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.calls))
	for _, c := range h.calls {
		out = append(out, c.Event)
	}
	return out
}

// Len returns the number of recorded events.
func (h *RecordingHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// Notify is signalled after each recorded event.
func (h *RecordingHandler) Notify() <-chan struct{} {
	return h.notify
}

func (h *RecordingHandler) record(c HandlerCall) error {
	h.mu.Lock()
	if h.panics[c.Event] {
		h.mu.Unlock()
		panic(fmt.Sprintf("handler panic on %s", c.Event))
	}
	err := h.errs[c.Event]
	h.calls = append(h.calls, c)
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
	return err
}

// NewEntity records a NewEntity event.
func (h *RecordingHandler) NewEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventNew, Identity: id, Entity: entity})
}

// UpdatedEntity records an UpdatedEntity event.
func (h *RecordingHandler) UpdatedEntity(_ context.Context, id omrs.Identity, old, updated *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventUpdated, Identity: id, Entity: updated, Old: old})
}

// DeletedEntity records a DeletedEntity event.
func (h *RecordingHandler) DeletedEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventDeleted, Identity: id, Entity: entity})
}

// PurgedEntity records a PurgedEntity event.
func (h *RecordingHandler) PurgedEntity(_ context.Context, id omrs.Identity, typeGUID, typeName, guid string) error {
	return h.record(HandlerCall{Event: EventPurged, Identity: id, TypeGUID: typeGUID, TypeName: typeName, GUID: guid})
}

// ClassifiedEntity records a ClassifiedEntity event.
func (h *RecordingHandler) ClassifiedEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventClassified, Identity: id, Entity: entity})
}

// ReclassifiedEntity records a ReclassifiedEntity event.
func (h *RecordingHandler) ReclassifiedEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventReclassified, Identity: id, Entity: entity})
}

// DeclassifiedEntity records a DeclassifiedEntity event.
func (h *RecordingHandler) DeclassifiedEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventDeclassified, Identity: id, Entity: entity})
}

// RefreshedEntity records a RefreshedEntity event.
func (h *RecordingHandler) RefreshedEntity(_ context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return h.record(HandlerCall{Event: EventRefreshed, Identity: id, Entity: entity})
}
