// Package message is the wire format of source change notifications.
//
// Every notification travels inside a versioned envelope:
//
//	{
//	  "version": {"version": "1.0.0", "versionParts": [1]},
//	  "msgCompressionKind": "NONE",
//	  "msgCreationTime": 1700000000000,
//	  "msgCreatedBy": "atlas",
//	  "message": {
//	    "type": "ENTITY_NOTIFICATION_V2",
//	    "entity": {"guid": "...", "typeName": "Table", ...},
//	    "operationType": "ENTITY_CREATE",
//	    "eventTime": 1700000000000
//	  }
//	}
//
// With msgCompressionKind "GZIP" the message field is a JSON string holding
// the base64 encoding of the gzipped message object.
//
// Decode accepts any envelope whose major version is SupportedMajorVersion
// and rejects the rest with errors.ErrUnsupportedVersion. The operation is
// parsed into the closed Operation enum; names it does not know become
// OperationUnknown rather than a decode failure, so the dispatcher can log
// and skip them.
//
// Record is the unit a notification feed hands to the consumer loop: the raw
// bytes plus enough delivery metadata to acknowledge them.
package message
