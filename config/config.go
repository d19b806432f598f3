package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/output/omrsevents"
	"github.com/planetf1/atlas-sub002/pkg/tlsutil"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/storage/kvstore"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

// Storage mode constants
const (
	StorageModeMemory = "memory" // In-memory store, loaded from a seed file
	StorageModeKV     = "kv"     // NATS KV only (no local cache)
	StorageModeHybrid = "hybrid" // KV + local entity cache (recommended for production)
)

// Output mode constants
const (
	OutputModeNATS = "nats" // Publish events to a JetStream stream
	OutputModeFile = "file" // Append events to a JSON lines journal
)

// Config represents the complete bridge configuration.
type Config struct {
	Bridge  BridgeConfig  `json:"bridge"`
	NATS    NATSConfig    `json:"nats"`
	Feed    FeedConfig    `json:"feed"`
	Storage StorageConfig `json:"storage"`
	Output  OutputConfig  `json:"output"`
	Metrics MetricsConfig `json:"metrics"`
}

// BridgeConfig is the bridge's identity on the target side and the naming
// rules for reserved types.
type BridgeConfig struct {
	SourceName           string `json:"source_name"`
	MetadataCollectionID string `json:"metadata_collection_id"`
	ServerName           string `json:"server_name"`
	ServerType           string `json:"server_type"`
	Organization         string `json:"organization"`

	// ReservedPrefix is prepended to reserved source type names.
	ReservedPrefix string `json:"reserved_prefix,omitempty"`
	// ReservedTypeGUIDs pins the target ids of reserved types, so every
	// bridge instance presents the same ids.
	ReservedTypeGUIDs map[string]string `json:"reserved_type_guids,omitempty"`
}

// Identity returns the identity the bridge stamps on every event.
func (b BridgeConfig) Identity() omrs.Identity {
	return omrs.Identity{
		SourceName:           b.SourceName,
		MetadataCollectionID: b.MetadataCollectionID,
		ServerName:           b.ServerName,
		ServerType:           b.ServerType,
		Organization:         b.Organization,
	}
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	PingInterval  time.Duration `json:"ping_interval,omitempty"`
	DrainTimeout  time.Duration `json:"drain_timeout,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	CredsFile     string        `json:"creds_file,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled            bool   `json:"enabled"`
	CertFile           string `json:"cert_file,omitempty"`
	KeyFile            string `json:"key_file,omitempty"`
	CAFile             string `json:"ca_file,omitempty"`
	MinVersion         string `json:"min_version,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty"`
}

// Client returns the TLS client settings.
func (t NATSTLSConfig) Client() tlsutil.ClientConfig {
	return tlsutil.ClientConfig{
		CertFile:           t.CertFile,
		KeyFile:            t.KeyFile,
		CAFile:             t.CAFile,
		MinVersion:         t.MinVersion,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
}

// FeedConfig describes the notification feed.
type FeedConfig struct {
	Stream  string `json:"stream"`
	Subject string `json:"subject,omitempty"`
	// GroupID is the durable consumer name. Every bridge instance uses the
	// same one, so the group shares a single position in the feed.
	GroupID       string        `json:"group_id"`
	BatchSize     int           `json:"batch_size"`
	PollTimeout   time.Duration `json:"poll_timeout"`
	ErrorBackoff  time.Duration `json:"error_backoff,omitempty"`
	AckWait       time.Duration `json:"ack_wait,omitempty"`
	MaxAckPending int           `json:"max_ack_pending,omitempty"`
}

// StorageConfig selects and tunes the source store.
type StorageConfig struct {
	Mode       string              `json:"mode"`
	Buckets    kvstore.BucketNames `json:"buckets"`
	DeleteMode string              `json:"delete_mode"`
	CacheSize  int                 `json:"cache_size,omitempty"`
	CacheTTL   time.Duration       `json:"cache_ttl,omitempty"`
	// SeedFile is loaded into the store at startup. Required in memory mode.
	SeedFile string `json:"seed_file,omitempty"`
}

// OutputConfig describes where target events go.
type OutputConfig struct {
	Mode          string                   `json:"mode"`
	Stream        string                   `json:"stream,omitempty"`
	SubjectPrefix string                   `json:"subject_prefix"`
	Journal       omrsevents.JournalConfig `json:"journal,omitempty"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path,omitempty"`
}

// Default returns the default configuration. Identity fields are left for
// the operator.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			SourceName:     "Apache Atlas",
			ServerType:     "Apache Atlas",
			ReservedPrefix: vocabulary.DefaultPrefix,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "atlasbridge",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			PingInterval:  20 * time.Second,
			DrainTimeout:  30 * time.Second,
		},
		Feed: FeedConfig{
			Stream:      "ATLAS_ENTITIES",
			Subject:     "atlas.entities",
			GroupID:     "atlasbridge",
			BatchSize:   100,
			PollTimeout: time.Second,
		},
		Storage: StorageConfig{
			Mode:       StorageModeHybrid,
			Buckets:    kvstore.DefaultBucketNames(),
			DeleteMode: string(storage.DeleteSoft),
			CacheSize:  10000,
			CacheTTL:   5 * time.Minute,
		},
		Output: OutputConfig{
			Mode:          OutputModeNATS,
			Stream:        "OMRS_EVENTS",
			SubjectPrefix: omrsevents.DefaultSubjectPrefix,
			Journal:       omrsevents.DefaultJournalConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration. Problems are reported as fatal
// configuration errors.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return errors.Fatalf(errors.ErrConfiguration, "Config", "Validate", format, args...)
	}

	if c.Bridge.MetadataCollectionID == "" {
		return fail("bridge.metadata_collection_id is required")
	}
	if c.Bridge.ServerName == "" {
		return fail("bridge.server_name is required")
	}
	for name, id := range c.Bridge.ReservedTypeGUIDs {
		if !vocabulary.IsReservedName(name) {
			return fail("bridge.reserved_type_guids: %q is not a reserved type", name)
		}
		if id == "" {
			return fail("bridge.reserved_type_guids: empty id for %q", name)
		}
	}

	// The feed always reads from NATS, whatever the storage and output modes.
	if len(c.NATS.URLs) == 0 {
		return fail("nats.urls is required")
	}
	if c.NATS.PingInterval < 0 || c.NATS.DrainTimeout < 0 {
		return fail("nats.ping_interval and nats.drain_timeout cannot be negative")
	}
	if c.NATS.TLS.Enabled && (c.NATS.TLS.CertFile == "") != (c.NATS.TLS.KeyFile == "") {
		return fail("nats.tls.cert_file and nats.tls.key_file must be set together")
	}
	if v := c.NATS.TLS.MinVersion; c.NATS.TLS.Enabled && v != "" && v != "1.2" && v != "1.3" {
		return fail("nats.tls.min_version must be 1.2 or 1.3, got %q", v)
	}

	if c.Feed.Stream == "" {
		return fail("feed.stream is required")
	}
	if c.Feed.GroupID == "" {
		return fail("feed.group_id is required")
	}
	if !isValidNATSSubjectPart(c.Feed.GroupID) {
		return fail("feed.group_id %q is not a valid consumer name", c.Feed.GroupID)
	}
	if c.Feed.BatchSize <= 0 {
		return fail("feed.batch_size must be positive")
	}

	switch c.Storage.Mode {
	case StorageModeMemory:
		if c.Storage.SeedFile == "" {
			return fail("storage.seed_file is required in %s mode", StorageModeMemory)
		}
	case StorageModeKV, StorageModeHybrid:
		b := c.Storage.Buckets
		if b.TypeDefs == "" || b.Entities == "" || b.Relationships == "" {
			return fail("storage.buckets must name all three buckets")
		}
	default:
		return fail("storage.mode must be one of %s, %s, %s, got %q",
			StorageModeMemory, StorageModeKV, StorageModeHybrid, c.Storage.Mode)
	}
	if _, err := storage.ParseDeleteMode(c.Storage.DeleteMode); err != nil {
		return fail("storage.delete_mode: %v", err)
	}
	if c.Storage.CacheSize < 0 {
		return fail("storage.cache_size cannot be negative")
	}

	switch c.Output.Mode {
	case OutputModeNATS:
		if c.Output.SubjectPrefix == "" {
			return fail("output.subject_prefix is required")
		}
		if strings.ContainsAny(c.Output.SubjectPrefix, " *>") {
			return fail("output.subject_prefix %q is not a literal subject", c.Output.SubjectPrefix)
		}
	case OutputModeFile:
		if err := c.Output.Journal.Validate(); err != nil {
			return fail("output.journal: %v", err)
		}
	default:
		return fail("output.mode must be %s or %s, got %q", OutputModeNATS, OutputModeFile, c.Output.Mode)
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fail("metrics.port %d is out of range", c.Metrics.Port)
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// String returns a JSON representation of the config with secrets masked.
func (c *Config) String() string {
	masked := c.Clone()
	for _, s := range []*string{&masked.NATS.Password, &masked.NATS.Token} {
		if *s != "" {
			*s = "****"
		}
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
