package aurum

import (
	"github.com/aurum-go/aurum/internal/ormconfig"
)

// Configuration re-exports, for callers that want to build or extend
// the provider chain themselves before handing it to New.
type (
	Config          = ormconfig.Config
	ConfigProvider  = ormconfig.Provider
	ConfigValidator = ormconfig.Validator
	ConfigManager   = ormconfig.Manager
)

// NewConfig builds the default provider chain (built-in defaults,
// aurum.toml, .env/.env.<environment>, process environment), matching
// the teacher's own Application default Config.
func NewConfig() *Config {
	return ormconfig.New()
}

// NewMemoryConfigProvider wraps a plain map as a ConfigProvider, handy
// for tests that want to set configuration without touching the
// filesystem or environment.
func NewMemoryConfigProvider(name string, values map[string]interface{}) ConfigProvider {
	return ormconfig.NewMemoryProvider(name, values)
}
