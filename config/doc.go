// Package config loads the bridge configuration.
//
// A configuration starts from Default, is overlaid by each file layer in
// order and finally by environment variables. Files are JSON or YAML,
// chosen by extension; durations may be written as strings ("2s", "7d").
//
//	loader := config.NewLoader()
//	loader.AddLayer("atlasbridge.yaml")
//	loader.AddLayer("production.json") // overrides the first layer
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// # Sections
//
//	bridge   identity on the target side, reserved type ids
//	nats     connection, credentials, TLS
//	feed     notification stream, durable group id, batch size, poll timeout
//	storage  memory, kv or hybrid; bucket names; delete mode; entity cache
//	output   nats (stream and subject prefix) or file (event journal)
//	metrics  port and path of /metrics and /healthz
//
// # Environment Overrides
//
// Variables carry the ATLASBRIDGE_ prefix:
//
//	ATLASBRIDGE_METADATA_COLLECTION_ID, ATLASBRIDGE_SERVER_NAME,
//	ATLASBRIDGE_ORGANIZATION, ATLASBRIDGE_NATS_URLS (comma-separated),
//	ATLASBRIDGE_NATS_USERNAME, ATLASBRIDGE_NATS_PASSWORD,
//	ATLASBRIDGE_NATS_TOKEN, ATLASBRIDGE_NATS_CREDS_FILE,
//	ATLASBRIDGE_FEED_GROUP_ID, ATLASBRIDGE_FEED_BATCH_SIZE,
//	ATLASBRIDGE_STORAGE_MODE, ATLASBRIDGE_DELETE_MODE,
//	ATLASBRIDGE_SEED_FILE, ATLASBRIDGE_OUTPUT_MODE,
//	ATLASBRIDGE_METRICS_PORT
//
// Validate reports the first problem as a fatal errors.ErrConfiguration.
// Config files are size-limited and must be regular files; JSON input is
// depth-checked before decoding.
package config
