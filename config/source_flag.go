package config

import (
	"github.com/spf13/pflag"
)

// FlagSource exposes command line flags that were explicitly set.
// bindings maps flag names to config keys, e.g. "port" -> "api_server.port".
// Unbound flags use their own name with '-' replaced by '_'.
type FlagSource struct {
	flags    *pflag.FlagSet
	bindings map[string]string
	priority int
}

func NewFlagSource(flags *pflag.FlagSet, bindings map[string]string, priority int) *FlagSource {
	return &FlagSource{flags: flags, bindings: bindings, priority: priority}
}

func (s *FlagSource) Name() string {
	return "flags"
}

func (s *FlagSource) Priority() int {
	return s.priority
}

func (s *FlagSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if s.flags == nil {
		return result, nil
	}

	s.flags.Visit(func(f *pflag.Flag) {
		key, ok := s.bindings[f.Name]
		if !ok {
			return
		}
		result[key] = f.Value.String()
	})
	return result, nil
}
