package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// LoaderBuilder assembles the standard source stack.
type LoaderBuilder struct {
	configPath   string
	envPrefix    string
	envBindings  map[string]string
	flags        *pflag.FlagSet
	flagBindings map[string]string
}

func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{}
}

func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithEnvBinding reads key from an exact variable name.
func (b *LoaderBuilder) WithEnvBinding(key, envKey string) *LoaderBuilder {
	if b.envBindings == nil {
		b.envBindings = make(map[string]string)
	}
	b.envBindings[key] = envKey
	return b
}

// WithFlags layers explicitly set flags on top of everything else.
func (b *LoaderBuilder) WithFlags(flags *pflag.FlagSet, bindings map[string]string) *LoaderBuilder {
	b.flags = flags
	b.flagBindings = bindings
	return b
}

// Build loads config.yaml, then <APP_ENV>.yaml, then env, then flags.
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), 10))
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, GetEnv()+".yaml"), 20))
	}

	if b.envPrefix != "" || len(b.envBindings) > 0 {
		env := NewEnvSource(b.envPrefix, 50)
		for k, v := range b.envBindings {
			env.AddBinding(k, v)
		}
		loader.AddSource(env)
	}

	if b.flags != nil {
		loader.AddSource(NewFlagSource(b.flags, b.flagBindings, 100))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv returns APP_ENV, then ENV, defaulting to "dev".
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
