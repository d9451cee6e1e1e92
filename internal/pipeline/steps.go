package pipeline

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

// TimestampStep converts record timestamps into one target timezone so
// multi-source streams compare cleanly.
type TimestampStep struct {
	loc *time.Location
}

func NewTimestampStep(timezone string) (*TimestampStep, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, apperrors.ConfigError("timestamp_step", "unknown timezone "+timezone).Wrap(err)
	}
	return &TimestampStep{loc: loc}, nil
}

func (s *TimestampStep) Name() string { return "timestamp_normalizer" }

func (s *TimestampStep) Normalize(r *types.Record) (*types.Record, error) {
	if r.Timestamp == nil {
		return r, nil
	}
	converted := r.Timestamp.In(s.loc)
	r.Timestamp = &converted
	return r, nil
}

// LevelStep fills in the severity of records whose parser could not
// determine one, probing the usual structured-data fields.
type LevelStep struct{}

func NewLevelStep() *LevelStep { return &LevelStep{} }

func (s *LevelStep) Name() string { return "level_normalizer" }

var levelHintFields = []string{"level", "severity", "loglevel", "log_level", "priority"}

func (s *LevelStep) Normalize(r *types.Record) (*types.Record, error) {
	if r.Level != types.LevelUnknown {
		return r, nil
	}
	for _, field := range levelHintFields {
		raw, ok := r.StructuredData[field]
		if !ok {
			continue
		}
		if level := types.ParseLevel(toString(raw)); level != types.LevelUnknown {
			r.Level = level
		}
		break
	}
	return r, nil
}

// defaultFieldMappings maps canonical structured-data field names to
// the aliases seen in the wild.
var defaultFieldMappings = map[string][]string{
	"timestamp":  {"@timestamp", "time", "datetime", "ts", "date", "event_time"},
	"message":    {"msg", "log", "text", "body", "content"},
	"level":      {"severity", "loglevel", "log_level", "priority", "lvl"},
	"logger":     {"logger_name", "name", "component", "module"},
	"thread":     {"thread_name", "thread_id", "tid"},
	"host":       {"hostname", "host_name", "server", "node"},
	"service":    {"service_name", "app", "application", "app_name"},
	"request_id": {"requestId", "request-id", "x-request-id", "correlation_id"},
	"trace_id":   {"traceId", "trace-id", "x-trace-id"},
	"user_id":    {"userId", "user-id", "uid", "user"},
	"ip":         {"client_ip", "clientip", "remote_addr", "source_ip", "src_ip"},
	"method":     {"http_method", "request_method", "verb"},
	"path":       {"url", "uri", "request_path", "endpoint"},
	"status":     {"status_code", "http_status", "response_code", "code"},
	"duration":   {"response_time", "latency", "elapsed", "took", "duration_ms"},
}

// FieldStep renames structured-data fields to a canonical schema.
// Custom mappings override the built-in ones per canonical name.
type FieldStep struct {
	reverse          map[string]string
	preserveOriginal bool
}

func NewFieldStep(custom map[string][]string, preserveOriginal bool) *FieldStep {
	mappings := make(map[string][]string, len(defaultFieldMappings)+len(custom))
	for canonical, aliases := range defaultFieldMappings {
		mappings[canonical] = aliases
	}
	for canonical, aliases := range custom {
		mappings[canonical] = aliases
	}

	reverse := make(map[string]string)
	for canonical, aliases := range mappings {
		for _, alias := range aliases {
			reverse[strings.ToLower(alias)] = canonical
		}
	}
	return &FieldStep{reverse: reverse, preserveOriginal: preserveOriginal}
}

func (s *FieldStep) Name() string { return "field_normalizer" }

func (s *FieldStep) Normalize(r *types.Record) (*types.Record, error) {
	if len(r.StructuredData) == 0 {
		return r, nil
	}
	normalized := make(map[string]interface{}, len(r.StructuredData))
	for key, value := range r.StructuredData {
		canonical, ok := s.reverse[strings.ToLower(key)]
		if !ok {
			normalized[key] = value
			continue
		}
		normalized[canonical] = value
		if s.preserveOriginal && key != canonical {
			normalized["_original_"+key] = value
		}
	}
	r.StructuredData = normalized
	return r, nil
}

// defaultIPFields are the structured-data fields probed for resolvable
// addresses, first hit wins.
var defaultIPFields = []string{"ip", "client_ip", "source_ip", "remote_addr"}

// HostnameStep reverse-resolves IP fields, caching results including
// failures so slow lookups are paid once per address.
type HostnameStep struct {
	ipFields  []string
	cacheSize int
	timeout   time.Duration
	resolver  *net.Resolver

	mu    sync.Mutex
	cache map[string]string
}

func NewHostnameStep(ipFields []string, cacheSize int, timeout time.Duration) *HostnameStep {
	if ipFields == nil {
		ipFields = defaultIPFields
	}
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &HostnameStep{
		ipFields:  ipFields,
		cacheSize: cacheSize,
		timeout:   timeout,
		resolver:  net.DefaultResolver,
		cache:     make(map[string]string),
	}
}

func (s *HostnameStep) Name() string { return "hostname_enricher" }

func (s *HostnameStep) Normalize(r *types.Record) (*types.Record, error) {
	for _, field := range s.ipFields {
		raw, ok := r.StructuredData[field]
		if !ok {
			continue
		}
		ip, ok := raw.(string)
		if !ok || ip == "" {
			break
		}
		if hostname := s.resolve(ip); hostname != "" {
			r.StructuredData[field+"_hostname"] = hostname
		}
		break
	}
	return r, nil
}

func (s *HostnameStep) resolve(ip string) string {
	s.mu.Lock()
	if hostname, ok := s.cache[ip]; ok {
		s.mu.Unlock()
		return hostname
	}
	s.mu.Unlock()

	if net.ParseIP(ip) == nil {
		return ""
	}

	hostname := ""
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if names, err := s.resolver.LookupAddr(ctx, ip); err == nil && len(names) > 0 {
		hostname = strings.TrimSuffix(names[0], ".")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= s.cacheSize {
		// crude eviction: drop half the entries
		drop := len(s.cache) / 2
		for k := range s.cache {
			if drop == 0 {
				break
			}
			delete(s.cache, k)
			drop--
		}
	}
	s.cache[ip] = hostname
	return hostname
}

type geoLookup struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// GeoStep annotates records with geography from a MaxMind database.
type GeoStep struct {
	reader   *maxminddb.Reader
	ipFields []string
}

func NewGeoStep(databasePath string, ipFields []string) (*GeoStep, error) {
	reader, err := maxminddb.Open(databasePath)
	if err != nil {
		return nil, apperrors.ConfigError("geo_step", "cannot open GeoIP database").Wrap(err)
	}
	if ipFields == nil {
		ipFields = []string{"ip", "client_ip", "source_ip"}
	}
	return &GeoStep{reader: reader, ipFields: ipFields}, nil
}

func (s *GeoStep) Name() string { return "geoip_enricher" }

func (s *GeoStep) Normalize(r *types.Record) (*types.Record, error) {
	for _, field := range s.ipFields {
		raw, ok := r.StructuredData[field]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			break
		}
		ip := net.ParseIP(value)
		if ip == nil {
			break
		}
		var result geoLookup
		if err := s.reader.Lookup(ip, &result); err == nil && result.Country.ISOCode != "" {
			r.StructuredData["geo"] = map[string]interface{}{
				"country":      result.Country.ISOCode,
				"country_name": result.Country.Names["en"],
				"city":         result.City.Names["en"],
				"latitude":     result.Location.Latitude,
				"longitude":    result.Location.Longitude,
			}
		}
		break
	}
	return r, nil
}

// Close releases the GeoIP database.
func (s *GeoStep) Close() error {
	return s.reader.Close()
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
