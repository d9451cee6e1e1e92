package parsers

import (
	"sort"

	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

// Registry resolves format names and aliases to parsers and picks the
// best parser for an unlabeled sample. Selection order on ties follows
// registration order, so more specific parsers register first.
type Registry struct {
	parsers []types.Parser
	byName  map[string]types.Parser
}

// NewRegistry builds a registry with every built-in parser registered.
func NewRegistry() *Registry {
	reg := &Registry{byName: make(map[string]types.Parser)}
	for _, p := range []types.Parser{
		NewJSONParser(),
		NewApacheCombinedParser(),
		NewApacheCommonParser(),
		NewNginxAccessParser(),
		NewNginxErrorParser(),
		NewSyslogRFC5424Parser(),
		NewSyslogRFC3164Parser(),
		NewPythonLoggingParser(),
		NewDockerJSONParser(),
		NewDockerDaemonParser(),
		NewKubernetesContainerParser(),
		NewKubernetesComponentParser(),
		NewKubernetesAuditParser(),
		NewKubernetesEventParser(),
		NewGenericParser(),
	} {
		reg.Register(p)
	}
	return reg
}

// Register adds a parser under its name and every supported format
// alias. Later registrations win alias conflicts.
func (reg *Registry) Register(p types.Parser) {
	reg.parsers = append(reg.parsers, p)
	reg.byName[p.Name()] = p
	for _, alias := range p.SupportedFormats() {
		reg.byName[alias] = p
	}
}

// Get resolves a format name or alias, falling back to the generic
// parser for unknown formats.
func (reg *Registry) Get(format string) (types.Parser, error) {
	if p, ok := reg.byName[format]; ok {
		return p, nil
	}
	if p, ok := reg.byName["generic"]; ok {
		return p, nil
	}
	return nil, apperrors.DetectionError("registry_get", "no parser registered for format "+format)
}

// Best scores every registered parser against the sample and returns
// the highest-confidence one. Earlier registrations win ties.
func (reg *Registry) Best(sample []string) (types.Parser, float64) {
	var best types.Parser
	bestScore := 0.0
	for _, p := range reg.parsers {
		score := p.CanParse(sample)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	if best == nil {
		best = reg.byName["generic"]
	}
	return best, bestScore
}

// Parsers returns the registered parsers in registration order.
func (reg *Registry) Parsers() []types.Parser {
	out := make([]types.Parser, len(reg.parsers))
	copy(out, reg.parsers)
	return out
}

// Formats returns every registered name and alias, sorted.
func (reg *Registry) Formats() []string {
	names := make([]string, 0, len(reg.byName))
	for name := range reg.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
