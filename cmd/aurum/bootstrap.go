package main

import (
	"fmt"
	"reflect"

	"github.com/aurum-go/aurum"
)

// registeredEntities maps the --entity name a CLI invocation passes to
// the reflect.Type its descriptor was registered under. Empty here —
// a consuming application fills it in alongside registerApplication.
var registeredEntities = map[string]reflect.Type{}

// bootEngine builds an Engine from the process's aurum.toml/.env/
// environment configuration, the way the teacher's own db_commands.go
// bootApp() boots a minimal application for CLI commands.
func bootEngine() (*aurum.Engine, error) {
	engine, err := aurum.New(nil)
	if err != nil {
		return nil, fmt.Errorf("boot aurum engine: %w", err)
	}
	registerApplication(engine)
	return engine, nil
}

// registerApplication is where a concrete application registers its
// entity descriptors and migration units against engine before a CLI
// command runs. Left empty here, matching the teacher's own
// migrationRunCmd comment ("User should register their migrations
// here") — this file is the seam a consuming project edits.
func registerApplication(engine *aurum.Engine) {
	_ = engine
}
