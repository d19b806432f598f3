package message

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/source"
)

// SupportedMajorVersion is the envelope major version Decode accepts.
const SupportedMajorVersion = 1

// CurrentVersion is the version Encode writes.
const CurrentVersion = "1.0.0"

// Compression kinds of an envelope's message field.
const (
	CompressionNone = "NONE"
	CompressionGzip = "GZIP"
)

// maxDecompressed bounds a gzipped message after inflation.
const maxDecompressed = 16 << 20

// Operation is the kind of change a notification reports.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationCreate
	OperationUpdate
	OperationDelete
	OperationClassify
	OperationDeclassify
	OperationReclassify
)

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "CREATE"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	case OperationClassify:
		return "CLASSIFY"
	case OperationDeclassify:
		return "DECLASSIFY"
	case OperationReclassify:
		return "RECLASSIFY"
	default:
		return "UNKNOWN"
	}
}

// ParseOperation maps a source operation name to an Operation. Both the
// source's own names (ENTITY_CREATE, CLASSIFICATION_ADD, ...) and the short
// forms (CREATE, CLASSIFY, ...) are accepted, in any case.
func ParseOperation(s string) Operation {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ENTITY_CREATE", "CREATE":
		return OperationCreate
	case "ENTITY_UPDATE", "UPDATE":
		return OperationUpdate
	case "ENTITY_DELETE", "DELETE":
		return OperationDelete
	case "CLASSIFICATION_ADD", "CLASSIFY":
		return OperationClassify
	case "CLASSIFICATION_DELETE", "DECLASSIFY":
		return OperationDeclassify
	case "CLASSIFICATION_UPDATE", "RECLASSIFY":
		return OperationReclassify
	default:
		return OperationUnknown
	}
}

// Version is the envelope version.
type Version struct {
	Version      string `json:"version"`
	VersionParts []int  `json:"versionParts,omitempty"`
}

// Major returns the major version, preferring VersionParts when present.
func (v Version) Major() (int, bool) {
	if len(v.VersionParts) > 0 {
		return v.VersionParts[0], true
	}
	head, _, _ := strings.Cut(strings.TrimPrefix(v.Version, "v"), ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Envelope wraps one notification.
type Envelope struct {
	Version         Version         `json:"version"`
	CompressionKind string          `json:"msgCompressionKind,omitempty"`
	CreationTime    int64           `json:"msgCreationTime,omitempty"`
	CreatedBy       string          `json:"msgCreatedBy,omitempty"`
	Message         json.RawMessage `json:"message"`
}

// EntityHeader is the part of an entity a notification carries.
type EntityHeader struct {
	GUID                string         `json:"guid"`
	TypeName            string         `json:"typeName"`
	Status              source.Status  `json:"status,omitempty"`
	DisplayText         string         `json:"displayText,omitempty"`
	Attributes          map[string]any `json:"attributes,omitempty"`
	ClassificationNames []string       `json:"classificationNames,omitempty"`
}

// EntityNotification reports one change to one entity.
type EntityNotification struct {
	Type          string       `json:"type,omitempty"`
	Entity        EntityHeader `json:"entity"`
	OperationType string       `json:"operationType"`
	EventTime     int64        `json:"eventTime,omitempty"`
}

// Operation returns the parsed operation kind.
func (n *EntityNotification) Operation() Operation {
	return ParseOperation(n.OperationType)
}

// Time returns the event time, or the zero time when the source sent none.
func (n *EntityNotification) Time() time.Time {
	if n.EventTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(n.EventTime).UTC()
}

// Notification is a decoded envelope together with its payload.
type Notification struct {
	Version      Version
	CreationTime int64
	CreatedBy    string
	EntityNotification
}

// Decode parses raw into a notification. It fails with ErrInvalidData for
// bytes that are not a well-formed envelope and ErrUnsupportedVersion for an
// envelope of another major version.
func Decode(raw []byte) (*Notification, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "envelope: %v", err)
	}

	major, ok := env.Version.Major()
	if !ok {
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode",
			"envelope version %q is not a version", env.Version.Version)
	}
	if major != SupportedMajorVersion {
		return nil, errors.Invalidf(errors.ErrUnsupportedVersion, "message", "Decode",
			"version %s, want major %d", env.Version.Version, SupportedMajorVersion)
	}

	body, err := payload(&env)
	if err != nil {
		return nil, err
	}

	n := &Notification{Version: env.Version, CreationTime: env.CreationTime, CreatedBy: env.CreatedBy}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&n.EntityNotification); err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "entity notification: %v", err)
	}
	if n.Entity.GUID == "" {
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "notification without entity guid")
	}
	return n, nil
}

func payload(env *Envelope) ([]byte, error) {
	if len(env.Message) == 0 || bytes.Equal(env.Message, []byte("null")) {
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "empty message")
	}

	switch strings.ToUpper(env.CompressionKind) {
	case "", CompressionNone:
		return env.Message, nil
	case CompressionGzip:
		var encoded string
		if err := json.Unmarshal(env.Message, &encoded); err != nil {
			return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "compressed message is not a string")
		}
		zipped, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "compressed message: %v", err)
		}
		zr, err := gzip.NewReader(bytes.NewReader(zipped))
		if err != nil {
			return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "gzip: %v", err)
		}
		defer zr.Close()
		body, err := io.ReadAll(io.LimitReader(zr, maxDecompressed+1))
		if err != nil {
			return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode", "gzip: %v", err)
		}
		if len(body) > maxDecompressed {
			return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode",
				"decompressed message exceeds %d bytes", maxDecompressed)
		}
		return body, nil
	default:
		return nil, errors.Invalidf(errors.ErrInvalidData, "message", "Decode",
			"unknown compression kind %q", env.CompressionKind)
	}
}

// EncodeOption configures Encode.
type EncodeOption func(*Envelope)

// WithCompression gzips the message field.
func WithCompression() EncodeOption {
	return func(e *Envelope) { e.CompressionKind = CompressionGzip }
}

// WithVersion overrides the envelope version.
func WithVersion(v string) EncodeOption {
	return func(e *Envelope) { e.Version = Version{Version: v} }
}

// WithCreatedBy sets the envelope's creator.
func WithCreatedBy(name string) EncodeOption {
	return func(e *Envelope) { e.CreatedBy = name }
}

// Encode wraps n in an envelope of CurrentVersion.
func Encode(n *EntityNotification, opts ...EncodeOption) ([]byte, error) {
	env := Envelope{
		Version:         Version{Version: CurrentVersion, VersionParts: []int{SupportedMajorVersion}},
		CompressionKind: CompressionNone,
		CreationTime:    time.Now().UnixMilli(),
	}
	for _, opt := range opts {
		opt(&env)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return nil, errors.WrapInvalid(err, "message", "Encode", "marshal notification")
	}

	if env.CompressionKind == CompressionGzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, errors.WrapInvalid(err, "message", "Encode", "compress notification")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.WrapInvalid(err, "message", "Encode", "compress notification")
		}
		body, err = json.Marshal(base64.StdEncoding.EncodeToString(buf.Bytes()))
		if err != nil {
			return nil, errors.WrapInvalid(err, "message", "Encode", "marshal compressed notification")
		}
	}
	env.Message = body

	data, err := json.Marshal(&env)
	if err != nil {
		return nil, errors.WrapInvalid(err, "message", "Encode", "marshal envelope")
	}
	return data, nil
}
