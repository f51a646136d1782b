package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/aurum-go/aurum/internal/ormerrors"
)

const maxDescriptionLength = 120

var descriptionPattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// unitTemplate mirrors the teacher's MakeMigration string template in
// root migrations.go, adapted to aurum's Executor-based Migration
// contract and a Dependencies() hook the teacher never needed.
var unitTemplate = template.Must(template.New("migration").Parse(`package {{.Package}}

import (
	"context"

	"github.com/aurum-go/aurum/internal/migrate"
)

// {{.TypeName}} was generated by aurum's migration generator.
type {{.TypeName}} struct {
	*migrate.BaseMigration
}

func New{{.TypeName}}() *{{.TypeName}} {
	return &{{.TypeName}}{
		BaseMigration: migrate.NewBaseMigration("{{.Version}}", "{{.Description}}"),
	}
}

func (m *{{.TypeName}}) Up(ctx context.Context, exec migrate.Executor) error {
	return nil
}

func (m *{{.TypeName}}) Down(ctx context.Context, exec migrate.Executor) error {
	return nil
}
`))

type unitTemplateData struct {
	Package     string
	TypeName    string
	Version     string
	Description string
}

// NewVersion formats the current instant as the 14-digit
// YYYYMMDDHHMMSS identifier spec.md §4.5 requires. Exposed separately
// from Generate so callers that need a version string without
// touching the filesystem (tests, the Differ's persisted-unit mode)
// can reuse it.
func NewVersion(now time.Time) string {
	return now.UTC().Format("20060102150405")
}

// Generate creates a new migration unit file under dir, named
// "<version>_<slug>.go", from unitTemplate. It fails on an empty,
// over-length or invalid-character description, and if a unit with the
// computed version already exists in registry (spec.md §4.5
// "Generation").
func Generate(registry *Registry, dir, packageName, description string, now time.Time) (version string, path string, err error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", "", ormerrors.NewMigrationError("", "generation-conflict",
			fmt.Errorf("description must not be empty"))
	}
	if len(description) > maxDescriptionLength {
		return "", "", ormerrors.NewMigrationError("", "generation-conflict",
			fmt.Errorf("description exceeds %d characters", maxDescriptionLength))
	}
	if !descriptionPattern.MatchString(description) {
		return "", "", ormerrors.NewMigrationError("", "generation-conflict",
			fmt.Errorf("description contains characters outside [a-zA-Z0-9 _-]"))
	}

	version = NewVersion(now)
	if registry != nil {
		if _, exists := registry.Get(version); exists {
			return "", "", ormerrors.NewMigrationError(version, "generation-conflict",
				fmt.Errorf("a migration unit already exists for version %s", version))
		}
	}

	slug := slugify(description)
	typeName := camelCase(slug)
	filename := fmt.Sprintf("%s_%s.go", version, slug)
	path = filepath.Join(dir, filename)

	if _, statErr := os.Stat(path); statErr == nil {
		return "", "", ormerrors.NewMigrationError(version, "generation-conflict",
			fmt.Errorf("file %s already exists", path))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", "", ormerrors.NewConfigurationError("migrations_dir", err)
	}
	defer f.Close()

	data := unitTemplateData{
		Package:     packageName,
		TypeName:    typeName,
		Version:     version,
		Description: description,
	}
	if err := unitTemplate.Execute(f, data); err != nil {
		return "", "", ormerrors.NewMigrationError(version, "generation-conflict", err)
	}

	return version, path, nil
}

func slugify(description string) string {
	lower := strings.ToLower(description)
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('_')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func camelCase(slug string) string {
	parts := strings.Split(slug, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}
