// Package testutil provides fixtures and fakes shared by the bridge's tests.
//
// # Overview
//
// The fixtures describe a small source type system and a handful of
// instances over it, so that tests in different packages talk about the same
// tables and columns:
//
//	Referenceable (reserved)
//	  ├── Table      name, rowCount, tags, columns
//	  └── Column     name, position, sortOrder (enum SortOrder)
//	PII            classification of Column, attribute level
//	table_columns  COMPOSITION relationship Table ◆── Column
//
// # Fakes
//
// MockNATSClient records what is published to stream subjects, MockFeed
// serves records to a consumer and tracks commits, and RecordingHandler
// records every downstream event it receives. All of them are safe for
// concurrent use.
//
// # Usage
//
//	store := testutil.NewStore(t, storage.DeleteSoft)
//	require.NoError(t, store.PutEntity(ctx, testutil.TableEntity("T-1")))
//
//	raw := testutil.EncodeNotification(t, "ENTITY_CREATE", testutil.TableEntity("T-1"))
//	feed := testutil.NewMockFeed()
//	feed.Add(raw)
package testutil
