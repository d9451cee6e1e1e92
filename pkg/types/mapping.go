package types

import (
	"time"

	"github.com/google/uuid"
)

// ToMap converts the record to a generic mapping suitable for JSON output.
// Nil sub-records and empty optional fields are elided; the shape is stable
// and round-trips through RecordFromMap.
func (r *Record) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":                  r.ID.String(),
		"raw":                 r.Raw,
		"timestamp":           nil,
		"timestamp_precision": r.TimestampPrecision,
		"level":               r.Level.String(),
		"format_detected":     r.FormatDetected,
		"message":             r.Message,
		"structured_data":     r.StructuredData,
		"parser_name":         r.ParserName,
		"parser_confidence":   r.ParserConfidence,
		"parse_errors":        r.ParseErrors,
		"extra":               r.Extra,
	}
	if r.Timestamp != nil {
		m["timestamp"] = r.Timestamp.Format(time.RFC3339Nano)
	}

	source := map[string]interface{}{}
	putString(source, "file_path", r.Source.FilePath)
	if r.Source.LineNumber > 0 {
		source["line_number"] = r.Source.LineNumber
	}
	putString(source, "hostname", r.Source.Hostname)
	putString(source, "service", r.Source.Service)
	putString(source, "container_id", r.Source.ContainerID)
	putString(source, "pod_name", r.Source.PodName)
	putString(source, "namespace", r.Source.Namespace)
	m["source"] = source

	if !r.Network.IsEmpty() {
		network := map[string]interface{}{}
		putString(network, "source_ip", r.Network.SourceIP)
		if r.Network.SourcePort > 0 {
			network["source_port"] = r.Network.SourcePort
		}
		putString(network, "dest_ip", r.Network.DestIP)
		if r.Network.DestPort > 0 {
			network["dest_port"] = r.Network.DestPort
		}
		putString(network, "protocol", r.Network.Protocol)
		putString(network, "user_agent", r.Network.UserAgent)
		putString(network, "referer", r.Network.Referer)
		m["network"] = network
	}

	if !r.HTTP.IsEmpty() {
		httpInfo := map[string]interface{}{}
		putString(httpInfo, "method", r.HTTP.Method)
		putString(httpInfo, "path", r.HTTP.Path)
		putString(httpInfo, "query", r.HTTP.Query)
		if r.HTTP.StatusCode > 0 {
			httpInfo["status_code"] = r.HTTP.StatusCode
		}
		if r.HTTP.ResponseSize > 0 {
			httpInfo["response_size"] = r.HTTP.ResponseSize
		}
		if r.HTTP.ResponseTimeMs > 0 {
			httpInfo["response_time_ms"] = r.HTTP.ResponseTimeMs
		}
		putString(httpInfo, "http_version", r.HTTP.HTTPVersion)
		m["http"] = httpInfo
	}

	if r.Correlation.HasAny() {
		correlation := map[string]interface{}{}
		putString(correlation, "request_id", r.Correlation.RequestID)
		putString(correlation, "trace_id", r.Correlation.TraceID)
		putString(correlation, "span_id", r.Correlation.SpanID)
		putString(correlation, "correlation_id", r.Correlation.CorrelationID)
		putString(correlation, "session_id", r.Correlation.SessionID)
		putString(correlation, "user_id", r.Correlation.UserID)
		putString(correlation, "transaction_id", r.Correlation.TransactionID)
		m["correlation"] = correlation
	}

	return m
}

// RecordFromMap rebuilds a record from the mapping shape ToMap produces.
// Unknown keys are ignored; a missing or malformed id gets a fresh one.
func RecordFromMap(m map[string]interface{}) *Record {
	r := NewRecord(asString(m["raw"]))

	if id, err := uuid.Parse(asString(m["id"])); err == nil {
		r.ID = id
	}
	if ts := asString(m["timestamp"]); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.Timestamp = &parsed
		}
	}
	if p := asString(m["timestamp_precision"]); p != "" {
		r.TimestampPrecision = p
	}
	if lvl, ok := m["level"]; ok {
		r.Level = ParseLevel(asString(lvl))
	}
	r.FormatDetected = asString(m["format_detected"])
	r.Message = asString(m["message"])
	if sd, ok := m["structured_data"].(map[string]interface{}); ok {
		r.StructuredData = sd
	}
	if extra, ok := m["extra"].(map[string]interface{}); ok {
		r.Extra = extra
	}
	r.ParserName = asString(m["parser_name"])
	r.ParserConfidence = asFloat(m["parser_confidence"])
	if raw, ok := m["parse_errors"].([]interface{}); ok {
		for _, e := range raw {
			r.ParseErrors = append(r.ParseErrors, asString(e))
		}
	} else if strs, ok := m["parse_errors"].([]string); ok {
		r.ParseErrors = append(r.ParseErrors, strs...)
	}

	if source, ok := m["source"].(map[string]interface{}); ok {
		r.Source = SourceInfo{
			FilePath:    asString(source["file_path"]),
			LineNumber:  int(asFloat(source["line_number"])),
			Hostname:    asString(source["hostname"]),
			Service:     asString(source["service"]),
			ContainerID: asString(source["container_id"]),
			PodName:     asString(source["pod_name"]),
			Namespace:   asString(source["namespace"]),
		}
	}
	if network, ok := m["network"].(map[string]interface{}); ok {
		r.Network = &NetworkInfo{
			SourceIP:   asString(network["source_ip"]),
			SourcePort: int(asFloat(network["source_port"])),
			DestIP:     asString(network["dest_ip"]),
			DestPort:   int(asFloat(network["dest_port"])),
			Protocol:   asString(network["protocol"]),
			UserAgent:  asString(network["user_agent"]),
			Referer:    asString(network["referer"]),
		}
	}
	if httpInfo, ok := m["http"].(map[string]interface{}); ok {
		r.HTTP = &HTTPInfo{
			Method:         asString(httpInfo["method"]),
			Path:           asString(httpInfo["path"]),
			Query:          asString(httpInfo["query"]),
			StatusCode:     int(asFloat(httpInfo["status_code"])),
			ResponseSize:   int64(asFloat(httpInfo["response_size"])),
			ResponseTimeMs: asFloat(httpInfo["response_time_ms"]),
			HTTPVersion:    asString(httpInfo["http_version"]),
		}
	}
	if correlation, ok := m["correlation"].(map[string]interface{}); ok {
		r.Correlation = CorrelationIDs{
			RequestID:     asString(correlation["request_id"]),
			TraceID:       asString(correlation["trace_id"]),
			SpanID:        asString(correlation["span_id"]),
			CorrelationID: asString(correlation["correlation_id"]),
			SessionID:     asString(correlation["session_id"]),
			UserID:        asString(correlation["user_id"]),
			TransactionID: asString(correlation["transaction_id"]),
		}
	}

	return r
}

func putString(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
