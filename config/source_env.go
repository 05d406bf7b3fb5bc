package config

import (
	"os"
	"strings"
)

// EnvSource maps PREFIX_* variables to config keys.
//
// A double underscore separates levels and a single underscore is kept, so
// AUTH_API_SERVER__PORT becomes api_server.port and
// AUTH_TOKEN__ACCESS_TTL becomes token.access_ttl.
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string
}

func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
	}
}

// AddBinding maps one key to an explicit variable, e.g. ("token.secret", "JWT_SECRET").
// Explicit bindings are read even without the prefix.
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

func (s *EnvSource) Priority() int {
	return s.priority
}

func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})

	if s.prefix != "" {
		prefix := s.prefix + "_"
		for _, env := range os.Environ() {
			name, value, ok := strings.Cut(env, "=")
			if !ok || !strings.HasPrefix(name, prefix) {
				continue
			}
			key := strings.ToLower(strings.TrimPrefix(name, prefix))
			result[strings.ReplaceAll(key, "__", ".")] = value
		}
	}

	for key, envKey := range s.bindings {
		if value, ok := os.LookupEnv(envKey); ok && value != "" {
			result[key] = value
		}
	}

	return result, nil
}
