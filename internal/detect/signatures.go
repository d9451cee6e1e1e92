package detect

import "unilog/pkg/types"

// BuiltinSignatures are the format fingerprints scored by the detector,
// ordered roughly by specificity. Magic patterns anchor at the line
// start and identify the format on their own; line patterns are weaker
// shared characteristics.
func BuiltinSignatures() []types.Signature {
	return []types.Signature{
		{
			Name:        "json_structured",
			Description: "JSON-formatted structured logs (JSONL/NDJSON)",
			MagicPatterns: []string{
				`^\s*\{.*"(timestamp|time|@timestamp|ts|datetime|created|level|severity|msg|message)"`,
			},
			LinePatterns: []string{
				`^\s*\{.*\}\s*$`,
			},
			IsJSON: true,
			Weight: 1.5,
			Parser: "json",
		},
		{
			Name:        "docker_json",
			Description: "Docker json-file logging driver output",
			MagicPatterns: []string{
				`^\s*\{.*"log"\s*:.*"stream"\s*:\s*"(stdout|stderr)".*"time"\s*:`,
			},
			LinePatterns: []string{
				`"stream"\s*:\s*"(stdout|stderr)"`,
			},
			IsJSON: true,
			Weight: 1.6,
			Parser: "docker_json",
		},
		{
			Name:        "apache_combined",
			Description: "Apache Combined Log Format",
			MagicPatterns: []string{
				`^\S+\s+\S+\s+\S+\s+\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4}\]\s+"[A-Z]+\s+\S+.*"\s+\d{3}\s+\d+\s+"[^"]*"\s+"[^"]*"`,
			},
			LinePatterns: []string{
				`\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4}\]`,
				`"[A-Z]+ .+ HTTP/[\d.]+"`,
			},
			Weight: 1.3,
			Parser: "apache_combined",
		},
		{
			Name:        "apache_common",
			Description: "Apache Common Log Format (CLF)",
			MagicPatterns: []string{
				`^\S+\s+\S+\s+\S+\s+\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4}\]\s+"[A-Z]+\s+\S+.*"\s+\d{3}\s+\d+$`,
			},
			LinePatterns: []string{
				`\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}`,
			},
			Weight: 1.2,
			Parser: "apache_common",
		},
		{
			Name:        "nginx_access",
			Description: "Nginx default access log format",
			MagicPatterns: []string{
				`^\S+\s+-\s+\S+\s+\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}\s+[+-]\d{4}\]\s+"[A-Z]+`,
			},
			LinePatterns: []string{
				`\[[\d]{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}`,
				`"[A-Z]+ .+ HTTP/[\d.]+"`,
			},
			Weight: 1.2,
			Parser: "nginx_access",
		},
		{
			Name:        "nginx_error",
			Description: "Nginx error log format",
			MagicPatterns: []string{
				`^\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}\s+\[(emerg|alert|crit|error|warn|notice|info|debug)\]`,
			},
			LinePatterns: []string{
				`^\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}`,
				`\[(emerg|alert|crit|error|warn|notice|info|debug)\]`,
			},
			Weight: 1.3,
			Parser: "nginx_error",
		},
		{
			Name:        "syslog_rfc5424",
			Description: "Syslog RFC 5424 format",
			MagicPatterns: []string{
				`^<\d{1,3}>1\s+\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`,
			},
			LinePatterns: []string{
				`^<\d{1,3}>1\s+`,
				`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`,
			},
			Weight: 1.4,
			Parser: "syslog_rfc5424",
		},
		{
			Name:        "syslog_rfc3164",
			Description: "Syslog RFC 3164 (BSD) format",
			MagicPatterns: []string{
				`^<\d{1,3}>[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}`,
			},
			LinePatterns: []string{
				`^[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}\s+\S+`,
				`^<\d{1,3}>`,
			},
			Weight: 1.2,
			Parser: "syslog_rfc3164",
		},
		{
			Name:        "python_logging",
			Description: "Python logging default format",
			MagicPatterns: []string{
				`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2},\d{3}\s+-\s+\S+\s+-\s+(DEBUG|INFO|WARNING|ERROR|CRITICAL)`,
				`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2},\d{3}\s+\S+\s+(DEBUG|INFO|WARNING|ERROR|CRITICAL)`,
			},
			LinePatterns: []string{
				`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2},\d{3}`,
				`(DEBUG|INFO|WARNING|ERROR|CRITICAL)`,
			},
			Weight: 1.3,
			Parser: "python_logging",
		},
		{
			Name:        "kubernetes_component",
			Description: "Kubernetes klog component format",
			MagicPatterns: []string{
				`^[IWEF]\d{4}\s+\d{2}:\d{2}:\d{2}\.\d+\s+\d+\s+\S+:\d+\]`,
			},
			LinePatterns: []string{
				`\S+\.go:\d+\]`,
			},
			Weight: 1.4,
			Parser: "kubernetes_component",
		},
		{
			Name:          "generic",
			Description:   "Generic log format (fallback)",
			MagicPatterns: nil,
			LinePatterns: []string{
				`^\d{4}[-/]\d{2}[-/]\d{2}`,
				`\d{2}:\d{2}:\d{2}`,
			},
			Weight: 0.5,
			Parser: "generic",
		},
	}
}
