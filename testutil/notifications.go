package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/message"
	"github.com/planetf1/atlas-sub002/types/source"
)

// Notification builds the entity notification for op on entity.
func Notification(op string, entity *source.Entity) *message.EntityNotification {
	names := make([]string, 0, len(entity.Classifications))
	for _, c := range entity.Classifications {
		names = append(names, c.TypeName)
	}
	return &message.EntityNotification{
		Type: "ENTITY_NOTIFICATION_V2",
		Entity: message.EntityHeader{
			GUID:                entity.GUID,
			TypeName:            entity.TypeName,
			Status:              entity.Status,
			Attributes:          entity.UniqueAttributes,
			ClassificationNames: names,
		},
		OperationType: op,
		EventTime:     1700000000000,
	}
}

// EncodeNotification returns the wire form of the notification for op on
// entity.
func EncodeNotification(t testing.TB, op string, entity *source.Entity, opts ...message.EncodeOption) []byte {
	t.Helper()
	raw, err := message.Encode(Notification(op, entity), opts...)
	require.NoError(t, err)
	return raw
}
