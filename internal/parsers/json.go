package parsers

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"

	"unilog/internal/security"
	"unilog/pkg/types"
)

// Field-name aliases probed for the canonical record fields, in priority
// order.
var (
	jsonTimestampFields = []string{
		"timestamp", "time", "@timestamp", "ts", "datetime",
		"created", "date", "logged_at", "log_time",
	}
	jsonLevelFields = []string{
		"level", "severity", "loglevel", "log_level", "lvl",
		"levelname", "priority",
	}
	jsonMessageFields = []string{
		"message", "msg", "text", "log", "body",
		"content", "event", "description",
	}
)

// JSONParser handles structured JSON logs (JSONL/NDJSON), probing the
// common field-naming conventions of logging libraries.
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) Name() string { return "json" }

func (p *JSONParser) SupportedFormats() []string {
	return []string{"json_structured", "json_lines", "ndjson", "json"}
}

// ParseLine decodes one JSON line. Non-object documents and documents
// breaching the depth limit become error-marked records.
func (p *JSONParser) ParseLine(line string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = p.Name()

	var decoded interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &decoded); err != nil {
		r.ParseErrors = append(r.ParseErrors, fmt.Sprintf("JSON decode error: %v", err))
		r.Message = line
		r.ParserConfidence = 0
		return r
	}

	data, ok := decoded.(map[string]interface{})
	if !ok {
		r.ParseErrors = append(r.ParseErrors, "JSON is not an object")
		r.Message = fmt.Sprintf("%v", decoded)
		r.ParserConfidence = 0.3
		return r
	}

	if err := security.ValidateJSONDepth(data, security.MaxJSONDepth); err != nil {
		r.ParseErrors = append(r.ParseErrors, fmt.Sprintf("JSON security validation failed: %v", err))
		r.Message = truncate(line, 200)
		r.ParserConfidence = 0.1
		return r
	}

	r.FormatDetected = "json_structured"
	r.ParserConfidence = 1.0
	r.StructuredData = data

	for _, field := range jsonTimestampFields {
		if raw, ok := data[field]; ok {
			value := stringify(raw)
			if ts := parseTimestamp(value); ts != nil {
				r.Timestamp = ts
				r.TimestampPrecision = detectPrecision(value)
			}
			break
		}
	}
	for _, field := range jsonLevelFields {
		if raw, ok := data[field]; ok {
			r.Level = types.ParseLevel(stringify(raw))
			break
		}
	}
	for _, field := range jsonMessageFields {
		if raw, ok := data[field]; ok {
			r.Message = stringify(raw)
			break
		}
	}
	if r.Message == "" {
		r.Message = summarizeObject(data)
	}

	r.Correlation = extractCorrelation(data)
	r.Source = extractSource(data)

	known := make(map[string]struct{})
	for _, fields := range [][]string{jsonTimestampFields, jsonLevelFields, jsonMessageFields} {
		for _, f := range fields {
			known[f] = struct{}{}
		}
	}
	for k, v := range data {
		if _, ok := known[k]; !ok {
			r.Extra[k] = v
		}
	}

	return r
}

// CanParse scores the fraction of sample lines that decode to objects,
// with a bonus when typical log fields are present.
func (p *JSONParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}

	jsonCount := 0
	hasLogFields := 0
	for _, line := range sample {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		jsonCount++
		for _, fields := range [][]string{jsonTimestampFields, jsonLevelFields, jsonMessageFields} {
			found := false
			for _, f := range fields {
				if _, ok := data[f]; ok {
					hasLogFields++
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}

	ratio := float64(jsonCount) / float64(len(sample))
	if hasLogFields > 0 {
		bonus := float64(hasLogFields) / float64(len(sample)) * 0.3
		if bonus > 0.2 {
			bonus = 0.2
		}
		if ratio+bonus > 1 {
			return 1
		}
		return ratio + bonus
	}
	return ratio * 0.8
}

func (p *JSONParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

func extractCorrelation(data map[string]interface{}) types.CorrelationIDs {
	get := func(names ...string) string {
		for _, name := range names {
			if v, ok := data[name]; ok {
				return stringify(v)
			}
		}
		return ""
	}
	return types.CorrelationIDs{
		RequestID:     get("request_id", "requestId", "req_id", "x-request-id"),
		TraceID:       get("trace_id", "traceId", "x-trace-id", "traceid"),
		SpanID:        get("span_id", "spanId", "x-span-id"),
		CorrelationID: get("correlation_id", "correlationId", "x-correlation-id"),
		SessionID:     get("session_id", "sessionId", "session"),
		UserID:        get("user_id", "userId", "user", "username"),
		TransactionID: get("transaction_id", "transactionId", "txn_id"),
	}
}

func extractSource(data map[string]interface{}) types.SourceInfo {
	get := func(names ...string) string {
		for _, name := range names {
			if v, ok := data[name]; ok {
				return stringify(v)
			}
		}
		return ""
	}
	return types.SourceInfo{
		Hostname:    get("hostname", "host", "server", "node"),
		Service:     get("service", "app", "application", "logger", "name"),
		ContainerID: get("container_id", "containerId", "container"),
		PodName:     get("pod_name", "podName", "pod"),
		Namespace:   get("namespace", "ns"),
	}
}

// summarizeObject synthesizes a message for objects that carry none.
func summarizeObject(data map[string]interface{}) string {
	var parts []string
	for _, key := range []string{"event", "action", "type", "status"} {
		if v, ok := data[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 3 {
		keys = keys[:3]
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, ", ")
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integers without the
		// trailing .0
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
