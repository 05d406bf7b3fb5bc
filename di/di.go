// Package di wires the service graph with samber/do.
//
// Every provider reads its typed configuration section from the injector, so
// callers only need to ProvideValue the sections and call Register:
//
//	injector := di.New()
//	do.ProvideValue(injector, tokenCfg)
//	...
//	di.Register(injector)
//	h := do.MustInvoke[*gateway.Handler](injector)
package di

import "github.com/samber/do/v2"

type Injector = do.Injector

type RootScope = do.RootScope

var New = do.New

var NewWithOpts = do.NewWithOpts

// Names of the instances the service uses out of the redis and database maps.
const (
	RedisInstance    = "main"
	DatabaseInstance = "master"
)
