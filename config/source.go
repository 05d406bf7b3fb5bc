package config

// ConfigSource supplies flat, dot-separated keys such as "redis.main.addr".
//
// Priorities used by LoaderBuilder:
//   - config.yaml: 10
//   - <env>.yaml: 20
//   - environment variables: 50
//   - command line flags: 100
type ConfigSource interface {
	Name() string
	Priority() int
	Load() (map[string]interface{}, error)
}
