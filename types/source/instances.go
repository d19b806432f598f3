package source

// Status is the lifecycle status of a source instance.
type Status string

// Source statuses
const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
	StatusPurged  Status = "PURGED"
)

// ObjectID references an entity by guid and type, optionally with the unique
// attributes that identify it.
type ObjectID struct {
	GUID             string         `json:"guid,omitempty"`
	TypeName         string         `json:"typeName,omitempty"`
	UniqueAttributes map[string]any `json:"uniqueAttributes,omitempty"`
}

// IsZero reports whether the reference names nothing.
func (o ObjectID) IsZero() bool {
	return o.GUID == "" && o.TypeName == "" && len(o.UniqueAttributes) == 0
}

// Classification is a classification attached to an entity.
type Classification struct {
	TypeName                         string         `json:"typeName"`
	Attributes                       map[string]any `json:"attributes,omitempty"`
	EntityGUID                       string         `json:"entityGuid,omitempty"`
	EntityStatus                     Status         `json:"entityStatus,omitempty"`
	Propagate                        *bool          `json:"propagate,omitempty"`
	RemovePropagationsOnEntityDelete *bool          `json:"removePropagationsOnEntityDelete,omitempty"`
}

// Entity is a full entity record as stored in the source.
//
// HomeID names the metadata collection that owns the entity; empty means
// the entity is owned by the store this bridge fronts. IsProxy marks a
// placeholder: a reference-only record whose full content lives elsewhere.
type Entity struct {
	GUID             string           `json:"guid"`
	TypeName         string           `json:"typeName"`
	Status           Status           `json:"status,omitempty"`
	Version          *int64           `json:"version,omitempty"`
	HomeID           string           `json:"homeId,omitempty"`
	IsProxy          bool             `json:"isProxy,omitempty"`
	IsIncomplete     bool             `json:"isIncomplete,omitempty"`
	Provenance       int              `json:"provenanceType,omitempty"`
	CreatedBy        string           `json:"createdBy,omitempty"`
	UpdatedBy        string           `json:"updatedBy,omitempty"`
	CreateTime       int64            `json:"createTime,omitempty"`
	UpdateTime       int64            `json:"updateTime,omitempty"`
	Attributes       map[string]any   `json:"attributes,omitempty"`
	UniqueAttributes map[string]any   `json:"uniqueAttributes,omitempty"`
	Classifications  []Classification `json:"classifications,omitempty"`
}

// IsPlaceholder reports whether the record is reference-only.
func (e *Entity) IsPlaceholder() bool {
	return e.IsProxy || e.IsIncomplete
}

// ObjectID returns a reference to the entity.
func (e *Entity) ObjectID() ObjectID {
	return ObjectID{GUID: e.GUID, TypeName: e.TypeName, UniqueAttributes: e.UniqueAttributes}
}

// Relationship is a relationship instance as stored in the source.
type Relationship struct {
	GUID          string         `json:"guid"`
	TypeName      string         `json:"typeName"`
	Status        Status         `json:"status,omitempty"`
	Version       *int64         `json:"version,omitempty"`
	HomeID        string         `json:"homeId,omitempty"`
	Label         string         `json:"label,omitempty"`
	PropagateTags PropagateTags  `json:"propagateTags,omitempty"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	UpdatedBy     string         `json:"updatedBy,omitempty"`
	CreateTime    int64          `json:"createTime,omitempty"`
	UpdateTime    int64          `json:"updateTime,omitempty"`
	End1          *ObjectID      `json:"end1,omitempty"`
	End2          *ObjectID      `json:"end2,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}
