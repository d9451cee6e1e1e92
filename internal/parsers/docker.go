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
	dockerJSONShape = regexp.MustCompile(`^{.*"log".*"stream".*"time".*}$`)

	// logfmt-style daemon line: time="..." level=... msg="..." k=v ...
	dockerDaemonPattern = regexp.MustCompile(
		`^time="([^"]+)"\s+level=(\w+)\s+msg="([^"]*)"(.*)$`)

	// systemd journal form: Mon DD HH:MM:SS host dockerd[pid]: msg
	dockerSystemdPattern = regexp.MustCompile(
		`^(\w{3}\s+\d+\s+\d+:\d+:\d+)\s+(\S+)\s+dockerd\[(\d+)\]:\s+(.*)$`)

	keyValuePattern = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|(\S+))`)
)

// DockerJSONParser handles container logs written by the json-file
// logging driver: one object per line with log, stream and time fields.
type DockerJSONParser struct{}

func NewDockerJSONParser() *DockerJSONParser { return &DockerJSONParser{} }

func (p *DockerJSONParser) Name() string { return "docker_json" }

func (p *DockerJSONParser) SupportedFormats() []string {
	return []string{"docker_json", "docker_container"}
}

func (p *DockerJSONParser) ParseLine(line string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = p.Name()

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &data); err != nil {
		r.ParseErrors = append(r.ParseErrors, fmt.Sprintf("JSON decode error: %v", err))
		r.Message = line
		r.ParserConfidence = 0
		return r
	}
	logField, ok := data["log"]
	if !ok {
		r.ParseErrors = append(r.ParseErrors, "Not a Docker JSON log")
		r.Message = line
		r.ParserConfidence = 0.3
		return r
	}

	r.FormatDetected = "docker_json"
	r.ParserConfidence = 1.0
	r.Message = strings.TrimRight(stringify(logField), "\n")

	if rawTime, ok := data["time"]; ok {
		value := stringify(rawTime)
		if ts := parseTimestamp(value); ts != nil {
			r.Timestamp = ts
			// the json-file driver records nanosecond timestamps
			r.TimestampPrecision = types.PrecisionNanoseconds
		}
	}

	stream := "stdout"
	if s, ok := data["stream"]; ok {
		stream = stringify(s)
	}
	r.StructuredData["stream"] = stream

	r.Level = inferLevelFromMessage(r.Message)
	if stream == "stderr" && r.Level == types.LevelInfo {
		// stderr output with no explicit severity is suspicious
		r.Level = types.LevelWarning
	}

	for k, v := range data {
		if k != "log" && k != "stream" && k != "time" {
			r.StructuredData[k] = v
		}
	}
	return r
}

func (p *DockerJSONParser) CanParse(sample []string) float64 {
	return matchFraction(sample, func(line string) bool {
		if line == "" || !dockerJSONShape.MatchString(line) {
			return false
		}
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			return false
		}
		_, hasLog := data["log"]
		_, hasStream := data["stream"]
		_, hasTime := data["time"]
		return hasLog && hasStream && hasTime
	})
}

func (p *DockerJSONParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

// DockerDaemonParser handles dockerd logs: the logfmt-style form first,
// then the systemd journal form, falling back to generic key=value
// extraction.
type DockerDaemonParser struct{}

func NewDockerDaemonParser() *DockerDaemonParser { return &DockerDaemonParser{} }

func (p *DockerDaemonParser) Name() string { return "docker_daemon" }

func (p *DockerDaemonParser) SupportedFormats() []string {
	return []string{"docker_daemon", "dockerd"}
}

func (p *DockerDaemonParser) ParseLine(line string) *types.Record {
	trimmed := strings.TrimSpace(line)

	if match := dockerDaemonPattern.FindStringSubmatch(trimmed); match != nil {
		return p.parseLogfmt(line, match)
	}
	if match := dockerSystemdPattern.FindStringSubmatch(trimmed); match != nil {
		return p.parseSystemd(line, match)
	}
	return p.parseKeyValue(line, trimmed)
}

func (p *DockerDaemonParser) parseLogfmt(line string, match []string) *types.Record {
	timestamp, level, message, rest := match[1], match[2], match[3], match[4]

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "docker_daemon"
	r.ParserConfidence = 1.0
	if ts := parseTimestamp(timestamp); ts != nil {
		r.Timestamp = ts
		r.TimestampPrecision = detectPrecision(timestamp)
	}
	r.Level = types.ParseLevel(level)
	r.Message = message

	if rest != "" {
		fields := parseKeyValueFields(rest)
		if len(fields) > 0 {
			r.StructuredData = fields
			if container, ok := fields["container"].(string); ok {
				r.Source.ContainerID = container
			}
		}
	}
	r.Source.Service = "dockerd"
	return r
}

func (p *DockerDaemonParser) parseSystemd(line string, match []string) *types.Record {
	timestamp, hostname, pid, message := match[1], match[2], match[3], match[4]

	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "docker_daemon_systemd"
	r.ParserConfidence = 0.9
	if ts := parseBSDTimestamp(timestamp, time.Now()); ts != nil {
		r.Timestamp = ts
		r.TimestampPrecision = types.PrecisionSeconds
	}
	r.Message = message
	r.Level = inferLevelFromMessage(message)
	r.Source.Hostname = hostname
	r.Source.Service = "dockerd"
	r.StructuredData["pid"] = pid
	return r
}

func (p *DockerDaemonParser) parseKeyValue(line, trimmed string) *types.Record {
	r := types.NewRecord(line)
	r.ParserName = p.Name()
	r.FormatDetected = "docker_daemon"
	r.ParserConfidence = 0.5

	fields := parseKeyValueFields(trimmed)
	if len(fields) == 0 {
		r.Message = trimmed
		r.Level = inferLevelFromMessage(trimmed)
		return r
	}

	r.StructuredData = fields
	switch {
	case fields["msg"] != nil:
		r.Message = stringify(fields["msg"])
	case fields["message"] != nil:
		r.Message = stringify(fields["message"])
	default:
		r.Message = trimmed
	}
	if raw, ok := fields["time"]; ok {
		if ts := parseTimestamp(stringify(raw)); ts != nil {
			r.Timestamp = ts
		}
	}
	if raw, ok := fields["level"]; ok {
		r.Level = types.ParseLevel(stringify(raw))
	}
	return r
}

func (p *DockerDaemonParser) CanParse(sample []string) float64 {
	if len(sample) == 0 {
		return 0
	}
	score := 0.0
	for _, line := range sample {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case dockerDaemonPattern.MatchString(line):
			score += 1.0
		case dockerSystemdPattern.MatchString(line):
			score += 0.8
		case strings.Contains(strings.ToLower(line), "dockerd") || strings.Contains(line, "level="):
			score += 0.3
		}
	}
	confidence := score / float64(len(sample))
	if confidence > 1 {
		return 1
	}
	return confidence
}

func (p *DockerDaemonParser) ParseStream(lines iter.Seq[string]) iter.Seq[*types.Record] {
	return streamWith(p.ParseLine, lines)
}

func parseKeyValueFields(s string) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, match := range keyValuePattern.FindAllStringSubmatch(s, -1) {
		value := match[2]
		if value == "" && match[3] != "" {
			value = match[3]
		}
		fields[match[1]] = value
	}
	return fields
}
