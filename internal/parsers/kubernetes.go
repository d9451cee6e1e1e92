package parsers

import (
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"unilog/pkg/types"
)

var (
	// kubectl logs --timestamps prefix
	k8sTimestampedPattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z)\s+(.*)$`)

	// klog: LMMDD HH:MM:SS.UUUUUU PID file:line] msg
	klogPattern = regexp.MustCompile(
		`^([IWEF])(\d{4})\s+(\d{2}:\d{2}:\d{2}\.\d+)\s+(\d+)\s+(\S+):(\d+)\]\s*(.*)$`)

	klogJSONShape = regexp.MustCompile(`^{.*"ts".*"msg".*}$`)

	// kubectl get events table row
	k8sEventTablePattern = regexp.MustCompile(
		`^(\S+)\s+(Normal|Warning)\s+(\w+)\s+(\S+)\s+(.*)$`)
)

var klogLevels = map[string]types.Level{
	"I": types.LevelInfo,
	"W": types.LevelWarning,
	"E": types.LevelError,
	"F": types.LevelCritical,
}

var k8sEventLevels = map[string]types.Level{
	"Normal":  types.LevelInfo,
	"Warning": types.LevelWarning,
}

// KubernetesContainerParser handles kubectl logs output, with or without
// the --timestamps nanosecond prefix. JSON payloads are delegated to the
// JSON parser and merged.
type KubernetesContainerParser struct {
	jsonParser *JSONParser
}

func NewKubernetesContainerParser() *KubernetesContainerParser {
	return &KubernetesContainerParser{jsonParser: NewJSONParser()}
}

func (p *KubernetesContainerParser) Name() string { return "kubernetes_container" }

func (p *KubernetesContainerParser) SupportedFormats() []string {
	return []string{"kubernetes_container", "kubectl_logs", "k8s_container"}
}

func (p *KubernetesContainerParser) ParseLine(line string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = p.Name()

	content := strings.TrimSpace(line)
	timestamped := false
	if match := k8sTimestampedPattern.FindStringSubmatch(content); match != nil {
		timestamped = true
		if ts := parseTimestamp(match[1]); ts != nil {
			r.Timestamp = ts
			r.TimestampPrecision = types.PrecisionNanoseconds
		}
		content = match[2]
	}

	if strings.HasPrefix(content, "{") {
		jsonRecord := p.jsonParser.ParseLine(content)
		if len(jsonRecord.ParseErrors) == 0 {
			r.Message = jsonRecord.Message
			r.Level = jsonRecord.Level
			r.StructuredData = jsonRecord.StructuredData
			r.Correlation = jsonRecord.Correlation
			if r.Timestamp == nil && jsonRecord.Timestamp != nil {
				r.Timestamp = jsonRecord.Timestamp
				r.TimestampPrecision = jsonRecord.TimestampPrecision
			}
			r.FormatDetected = "kubernetes_container_json"
			r.ParserConfidence = 1.0
			return r
		}
	}

	r.Message = content
	r.Level = inferLevelFromMessage(content)
	r.FormatDetected = "kubernetes_container"
	if timestamped {
		r.ParserConfidence = 0.8
	} else {
		r.ParserConfidence = 0.6
	}
	return r
}

func (p *KubernetesContainerParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	timestamped := 0
	for _, line := range sample {
		if k8sTimestampedPattern.MatchString(strings.TrimSpace(line)) {
			timestamped++
		}
	}
	if timestamped > 0 {
		confidence := 0.6 + float64(timestamped)/float64(len(sample))*0.4
		if confidence > 1 {
			return 1
		}
		return confidence
	}
	return 0.3
}

func (p *KubernetesContainerParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// KubernetesComponentParser handles component logs (kubelet,
// kube-apiserver) in klog format, plus the JSON form newer components
// emit.
type KubernetesComponentParser struct{}

func NewKubernetesComponentParser() *KubernetesComponentParser {
	return &KubernetesComponentParser{}
}

func (p *KubernetesComponentParser) Name() string { return "kubernetes_component" }

func (p *KubernetesComponentParser) SupportedFormats() []string {
	return []string{"kubernetes_component", "klog", "k8s_klog"}
}

func (p *KubernetesComponentParser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)

	if match := klogPattern.FindStringSubmatch(trimmed); match != nil {
		return p.parseKlog(line, match)
	}
	if strings.HasPrefix(trimmed, "{") {
		if r := p.parseJSON(line, trimmed); r != nil {
			return r
		}
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.Message = trimmed
	r.Level = inferLevelFromMessage(trimmed)
	r.FormatDetected = "kubernetes_component"
	r.ParserConfidence = 0.3
	return r
}

func (p *KubernetesComponentParser) parseKlog(line string, match []string) *types.Record {
	levelChar, mmdd, timeStr, pid, file, lineNum, message :=
		match[1], match[2], match[3], match[4], match[5], match[6], match[7]

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "klog"
	r.ParserConfidence = 1.0
	if level, ok := klogLevels[levelChar]; ok {
		r.Level = level
	} else {
		r.Level = types.LevelInfo
	}
	r.Message = message

	// klog timestamps carry only MMDD, the year is reconstructed
	now := time.Now()
	month := time.Month((int(mmdd[0]-'0'))*10 + int(mmdd[1]-'0'))
	day := (int(mmdd[2]-'0'))*10 + int(mmdd[3]-'0')
	year := reconstructYear(month, now)
	stamp := fmt.Sprintf("%d-%02d-%02d %s", year, int(month), day, timeStr)
	if ts := parseTimestamp(stamp); ts != nil {
		r.Timestamp = ts
		r.TimestampPrecision = types.PrecisionMicroseconds
	}

	r.StructuredData["pid"] = pid
	r.StructuredData["source_file"] = file
	r.StructuredData["source_line"] = lineNum
	return r
}

func (p *KubernetesComponentParser) parseJSON(line, trimmed string) *types.Record {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "kubernetes_component_json"
	r.ParserConfidence = 1.0
	r.StructuredData = data

	switch {
	case data["msg"] != nil:
		r.Message = stringify(data["msg"])
	case data["message"] != nil:
		r.Message = stringify(data["message"])
	default:
		r.Message = trimmed
	}

	for _, field := range []string{"ts", "time", "timestamp"} {
		if raw, ok := data[field]; ok {
			if ts := parseTimestamp(stringify(raw)); ts != nil {
				r.Timestamp = ts
				break
			}
		}
	}

	switch {
	case data["level"] != nil:
		r.Level = types.ParseLevel(stringify(data["level"]))
	case data["severity"] != nil:
		r.Level = types.ParseLevel(stringify(data["severity"]))
	default:
		r.Level = inferLevelFromMessage(r.Message)
	}
	return r
}

func (p *KubernetesComponentParser) CanParse(sample []string) float64 {
	return matchFraction(sample, func(line string) bool {
		return klogPattern.MatchString(line) || klogJSONShape.MatchString(line)
	})
}

func (p *KubernetesComponentParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// KubernetesAuditParser handles API-server audit events: JSON objects
// whose apiVersion names the audit API group.
type KubernetesAuditParser struct{}

func NewKubernetesAuditParser() *KubernetesAuditParser { return &KubernetesAuditParser{} }

func (p *KubernetesAuditParser) Name() string { return "kubernetes_audit" }

func (p *KubernetesAuditParser) SupportedFormats() []string {
	return []string{"kubernetes_audit", "k8s_audit"}
}

func (p *KubernetesAuditParser) ParseLine(line string) *types.Record {
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
		r.ParseErrors = append(r.ParseErrors, "Not a JSON object")
		r.Message = line
		r.ParserConfidence = 0
		return r
	}
	if !strings.Contains(stringify(data["apiVersion"]), "audit.k8s.io") {
		r.ParseErrors = append(r.ParseErrors, "Not a Kubernetes audit log")
		r.Message = line
		r.ParserConfidence = 0.3
		return r
	}

	r.FormatDetected = "kubernetes_audit"
	r.ParserConfidence = 1.0
	r.StructuredData = data

	verb := stringify(data["verb"])
	uri := stringify(data["requestURI"])
	r.Message = strings.ToUpper(verb) + " " + uri

	for _, field := range []string{"stageTimestamp", "requestReceivedTimestamp"} {
		raw, ok := data[field]
		if !ok {
			continue
		}
		if ts := parseTimestamp(stringify(raw)); ts != nil {
			r.Timestamp = ts
			r.TimestampPrecision = detectPrecision(stringify(raw))
		}
		break
	}

	code := 200
	if status, ok := data["responseStatus"].(map[string]interface{}); ok {
		if c, ok := status["code"].(float64); ok {
			code = int(c)
		}
	}
	r.Level = levelFromStatus(code)

	r.Correlation.RequestID = stringify(data["auditID"])
	if user, ok := data["user"].(map[string]interface{}); ok {
		r.Correlation.UserID = stringify(user["username"])
		if groups, ok := user["groups"]; ok {
			r.StructuredData["user_groups"] = groups
		}
	}
	if ips, ok := data["sourceIPs"].([]interface{}); ok && len(ips) > 0 {
		r.StructuredData["source_ip"] = ips[0]
	}
	return r
}

func (p *KubernetesAuditParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	score := 0.0
	for _, line := range sample {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		if strings.Contains(stringify(data["apiVersion"]), "audit.k8s.io") {
			score += 1.0
		} else if stringify(data["kind"]) == "Event" && data["auditID"] != nil {
			score += 0.8
		}
	}
	return score / float64(len(sample))
}

func (p *KubernetesAuditParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// KubernetesEventParser handles Event objects, both as JSON and as the
// kubectl get events table output (header lines included).
type KubernetesEventParser struct{}

func NewKubernetesEventParser() *KubernetesEventParser { return &KubernetesEventParser{} }

func (p *KubernetesEventParser) Name() string { return "kubernetes_event" }

func (p *KubernetesEventParser) SupportedFormats() []string {
	return []string{"kubernetes_event", "k8s_event"}
}

func (p *KubernetesEventParser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "LAST SEEN") || strings.HasPrefix(trimmed, "NAMESPACE") {
		r := types.NewRecord(line)
		r.ParserName = p.Name()
		r.Message = trimmed
		r.Level = types.LevelUnknown
		r.ParserConfidence = 0.3
		return r
	}

	if strings.HasPrefix(trimmed, "{") {
		if r := p.parseJSON(line, trimmed); r != nil {
			return r
		}
	}
	if match := k8sEventTablePattern.FindStringSubmatch(trimmed); match != nil {
		return p.parseTable(line, match)
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.Message = trimmed
	r.Level = inferLevelFromMessage(trimmed)
	r.FormatDetected = "kubernetes_event"
	r.ParserConfidence = 0.3
	return r
}

func (p *KubernetesEventParser) parseTable(line string, match []string) *types.Record {
	age, eventType, reason, object, message := match[1], match[2], match[3], match[4], match[5]

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "kubernetes_event_table"
	r.ParserConfidence = 0.9
	if level, ok := k8sEventLevels[eventType]; ok {
		r.Level = level
	} else {
		r.Level = types.LevelInfo
	}
	r.Message = "[" + reason + "] " + object + ": " + message

	r.StructuredData["age"] = age
	r.StructuredData["type"] = eventType
	r.StructuredData["reason"] = reason
	r.StructuredData["object"] = object
	r.StructuredData["message"] = message
	if kind, name, found := strings.Cut(object, "/"); found {
		r.StructuredData["object_kind"] = kind
		r.StructuredData["object_name"] = name
	}
	return r
}

func (p *KubernetesEventParser) parseJSON(line, trimmed string) *types.Record {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil
	}

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "kubernetes_event_json"
	r.ParserConfidence = 1.0
	r.StructuredData = data

	reason := stringify(data["reason"])
	message := stringify(data["message"])
	objRef, _ := data["involvedObject"].(map[string]interface{})
	objStr := stringify(objRef["kind"]) + "/" + stringify(objRef["name"])
	r.Message = "[" + reason + "] " + objStr + ": " + message

	eventType := "Normal"
	if t, ok := data["type"]; ok {
		eventType = stringify(t)
	}
	if level, ok := k8sEventLevels[eventType]; ok {
		r.Level = level
	} else {
		r.Level = types.LevelInfo
	}

	for _, field := range []string{"lastTimestamp", "firstTimestamp", "eventTime"} {
		if raw, ok := data[field]; ok && raw != nil {
			if ts := parseTimestamp(stringify(raw)); ts != nil {
				r.Timestamp = ts
				break
			}
		}
	}

	r.Source.Namespace = stringify(objRef["namespace"])
	if stringify(objRef["kind"]) == "Pod" {
		r.Source.PodName = stringify(objRef["name"])
	}
	return r
}

func (p *KubernetesEventParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	score := 0.0
	for _, line := range sample {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k8sEventTablePattern.MatchString(line) {
			score += 1.0
		} else if strings.HasPrefix(line, "LAST SEEN") {
			score += 0.5
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err == nil {
			if stringify(data["kind"]) == "Event" || data["involvedObject"] != nil {
				score += 1.0
			}
		}
	}
	confidence := score / float64(len(sample))
	if confidence > 1 {
		return 1
	}
	return confidence
}

func (p *KubernetesEventParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}
