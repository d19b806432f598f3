package omrsevents

import (
	"time"

	"github.com/google/uuid"

	"github.com/planetf1/atlas-sub002/types/omrs"
)

// EventType names an instance event on the target side.
type EventType string

// Instance event types
const (
	NewEntity          EventType = "NEW_ENTITY_EVENT"
	UpdatedEntity      EventType = "UPDATED_ENTITY_EVENT"
	DeletedEntity      EventType = "DELETED_ENTITY_EVENT"
	PurgedEntity       EventType = "PURGED_ENTITY_EVENT"
	ClassifiedEntity   EventType = "CLASSIFIED_ENTITY_EVENT"
	ReclassifiedEntity EventType = "RECLASSIFIED_ENTITY_EVENT"
	DeclassifiedEntity EventType = "DECLASSIFIED_ENTITY_EVENT"
	RefreshedEntity    EventType = "REFRESHED_ENTITY_EVENT"
)

// Originator identifies the server that produced an event.
type Originator struct {
	MetadataCollectionID string `json:"metadataCollectionId"`
	ServerName           string `json:"serverName"`
	ServerType           string `json:"serverType"`
	Organization         string `json:"organizationName"`
}

// InstanceEvent is the wire form of one target instance event.
type InstanceEvent struct {
	EventID    string     `json:"eventId"`
	EventType  EventType  `json:"instanceEventType"`
	Timestamp  time.Time  `json:"timestamp"`
	Originator Originator `json:"eventOriginator"`

	TypeDefGUID  string `json:"typeDefGUID"`
	TypeDefName  string `json:"typeDefName"`
	InstanceGUID string `json:"instanceGUID"`

	OriginalEntity *omrs.EntityDetail `json:"originalEntity,omitempty"`
	Entity         *omrs.EntityDetail `json:"entity,omitempty"`
}

// NewInstanceEvent builds an event about entity. entity may be nil for a
// purge, in which case the identifiers are set by the caller.
func NewInstanceEvent(eventType EventType, id omrs.Identity, entity *omrs.EntityDetail) *InstanceEvent {
	e := &InstanceEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Originator: Originator{
			MetadataCollectionID: id.MetadataCollectionID,
			ServerName:           id.ServerName,
			ServerType:           id.ServerType,
			Organization:         id.Organization,
		},
		Entity: entity,
	}
	if entity != nil {
		e.TypeDefGUID = entity.Type.TypeDefGUID
		e.TypeDefName = entity.Type.TypeDefName
		e.InstanceGUID = entity.GUID
	}
	return e
}
