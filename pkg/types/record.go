package types

import (
	"time"

	"github.com/google/uuid"
)

// Timestamp precision tags. Precision is inferred from the fractional
// seconds available in the original representation.
const (
	PrecisionSeconds      = "s"
	PrecisionMilliseconds = "ms"
	PrecisionMicroseconds = "us"
	PrecisionNanoseconds  = "ns"
	PrecisionUnknown      = "unknown"
)

// SourceInfo identifies where a record came from.
type SourceInfo struct {
	FilePath    string `json:"file_path,omitempty"`
	LineNumber  int    `json:"line_number,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	Service     string `json:"service,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	PodName     string `json:"pod_name,omitempty"`
	Namespace   string `json:"namespace,omitempty"`
}

// NetworkInfo carries the network-facing fields of access-style logs.
type NetworkInfo struct {
	SourceIP   string `json:"source_ip,omitempty"`
	SourcePort int    `json:"source_port,omitempty"`
	DestIP     string `json:"dest_ip,omitempty"`
	DestPort   int    `json:"dest_port,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Referer    string `json:"referer,omitempty"`
}

// IsEmpty reports whether no network field is populated.
func (n *NetworkInfo) IsEmpty() bool {
	return n == nil || *n == NetworkInfo{}
}

// HTTPInfo carries the request/response fields of HTTP logs.
type HTTPInfo struct {
	Method         string  `json:"method,omitempty"`
	Path           string  `json:"path,omitempty"`
	Query          string  `json:"query,omitempty"`
	StatusCode     int     `json:"status_code,omitempty"`
	ResponseSize   int64   `json:"response_size,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms,omitempty"`
	HTTPVersion    string  `json:"http_version,omitempty"`
}

// IsEmpty reports whether no HTTP field is populated.
func (h *HTTPInfo) IsEmpty() bool {
	return h == nil || *h == HTTPInfo{}
}

// CorrelationIDs holds the identifiers used to relate records across
// sources.
type CorrelationIDs struct {
	RequestID     string `json:"request_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
	SpanID        string `json:"span_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// PrimaryID returns the strongest available identifier, in fixed priority
// order, or "" when none is set.
func (c CorrelationIDs) PrimaryID() string {
	for _, id := range []string{
		c.RequestID, c.TraceID, c.CorrelationID,
		c.TransactionID, c.SpanID, c.SessionID, c.UserID,
	} {
		if id != "" {
			return id
		}
	}
	return ""
}

// HasAny reports whether any correlation identifier is set.
func (c CorrelationIDs) HasAny() bool {
	return c != CorrelationIDs{}
}

// Record is the normalized per-line result every parser produces. Records
// are immutable by convention: only normalization steps mutate them after
// creation.
type Record struct {
	ID                 uuid.UUID              `json:"id"`
	Raw                string                 `json:"raw"`
	Timestamp          *time.Time             `json:"timestamp,omitempty"`
	TimestampPrecision string                 `json:"timestamp_precision"`
	Level              Level                  `json:"level"`
	FormatDetected     string                 `json:"format_detected"`
	Message            string                 `json:"message"`
	StructuredData     map[string]interface{} `json:"structured_data,omitempty"`
	Source             SourceInfo             `json:"source"`
	Network            *NetworkInfo           `json:"network,omitempty"`
	HTTP               *HTTPInfo              `json:"http,omitempty"`
	Correlation        CorrelationIDs         `json:"correlation"`
	ParserName         string                 `json:"parser_name"`
	ParserConfidence   float64                `json:"parser_confidence"`
	ParseErrors        []string               `json:"parse_errors,omitempty"`
	Extra              map[string]interface{} `json:"extra,omitempty"`
}

// NewRecord creates a record for a raw line with a fresh identifier and
// defaults for everything else.
func NewRecord(raw string) *Record {
	return &Record{
		ID:                 uuid.New(),
		Raw:                raw,
		TimestampPrecision: PrecisionUnknown,
		Level:              LevelUnknown,
		StructuredData:     make(map[string]interface{}),
		Extra:              make(map[string]interface{}),
	}
}

// IsError reports whether the record's level is ERROR or more severe.
func (r *Record) IsError() bool {
	return r.Level >= LevelError
}

// FormattedTimestamp renders the timestamp with the given layout, or the
// placeholder "-" when the record carries no timestamp.
func (r *Record) FormattedTimestamp(layout string) string {
	if r.Timestamp == nil {
		return "-"
	}
	return r.Timestamp.Format(layout)
}
