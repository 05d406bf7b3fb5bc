package application

import (
	"github.com/spf13/pflag"

	"github.com/KOMKZ/go-yogan-auth/config"
)

// EnvPrefix namespaces environment overrides; "__" separates levels, e.g.
// AUTH_API_SERVER__PORT=9090.
const EnvPrefix = "AUTH"

// LoadOptions locates configuration for one process.
type LoadOptions struct {
	ConfigDir string
	EnvPrefix string
	Flags     *pflag.FlagSet
}

// BindFlags declares the command line overrides on fs and returns the
// flag -> config key bindings for the loader.
func BindFlags(fs *pflag.FlagSet) map[string]string {
	fs.String("host", "", "listen host (overrides api_server.host)")
	fs.Int("port", 0, "listen port (overrides api_server.port)")
	fs.String("mode", "", "gin mode: debug, release or test")
	fs.String("log-level", "", "log level (overrides logger.level)")

	return map[string]string{
		"host":      "api_server.host",
		"port":      "api_server.port",
		"mode":      "api_server.mode",
		"log-level": "logger.level",
	}
}

// Load reads config.yaml and <APP_ENV>.yaml from ConfigDir, then the
// environment, then explicitly set flags.
func Load(opts LoadOptions) (*AppConfig, error) {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = EnvPrefix
	}

	b := config.NewLoaderBuilder().
		WithConfigPath(opts.ConfigDir).
		WithEnvPrefix(opts.EnvPrefix)
	if opts.Flags != nil {
		b.WithFlags(opts.Flags, flagBindings(opts.Flags))
	}

	loader, err := b.Build()
	if err != nil {
		return nil, err
	}
	return LoadConfig(loader)
}

// flagBindings keeps only the bindings whose flags exist on fs.
func flagBindings(fs *pflag.FlagSet) map[string]string {
	all := BindFlags(pflag.NewFlagSet("bindings", pflag.ContinueOnError))
	out := make(map[string]string, len(all))
	for name, key := range all {
		if fs.Lookup(name) != nil {
			out[name] = key
		}
	}
	return out
}
