package ormconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvProvider loads configuration from process environment variables,
// keyed by lowercased, dot-normalized name (AURUM_CONNECTION_DSN ->
// connection.dsn).
type EnvProvider struct {
	Prefix string
}

func (ep *EnvProvider) Name() string { return "env" }

func (ep *EnvProvider) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	prefix := ep.Prefix
	if prefix == "" {
		prefix = "AURUM_"
	}

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], prefix) {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(parts[0], prefix), "_", "."))
		result[key] = ParseValue(parts[1])
	}

	return result, nil
}

// DotEnvProvider loads KEY=VALUE pairs from a .env-style file.
type DotEnvProvider struct {
	Path string
}

func NewDotEnvProvider(path string) (*DotEnvProvider, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("env file %s does not exist", path)
	}
	return &DotEnvProvider{Path: path}, nil
}

func (dep *DotEnvProvider) Name() string { return fmt.Sprintf("dotenv:%s", dep.Path) }

func (dep *DotEnvProvider) Load() (map[string]interface{}, error) {
	file, err := os.Open(dep.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	result := make(map[string]interface{})
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid syntax in %s at line %d: %s", dep.Path, lineNum, line)
		}

		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := removeQuotes(strings.TrimSpace(parts[1]))
		result[key] = ParseValue(value)
	}

	return result, scanner.Err()
}

// TOMLProvider loads the nested connection/migrations/metadata sections
// from a project's aurum.toml file.
type TOMLProvider struct {
	Path string
}

func NewTOMLProvider(path string) *TOMLProvider {
	return &TOMLProvider{Path: path}
}

func (tp *TOMLProvider) Name() string { return fmt.Sprintf("toml:%s", tp.Path) }

func (tp *TOMLProvider) Load() (map[string]interface{}, error) {
	if _, err := os.Stat(tp.Path); os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(tp.Path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", tp.Path, err)
	}

	return FlattenMap(raw, ""), nil
}

// MemoryProvider is an in-memory provider, mainly for tests.
type MemoryProvider struct {
	name   string
	values map[string]interface{}
}

func NewMemoryProvider(name string, values map[string]interface{}) *MemoryProvider {
	return &MemoryProvider{name: name, values: values}
}

func (mp *MemoryProvider) Name() string { return fmt.Sprintf("memory:%s", mp.name) }

func (mp *MemoryProvider) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for k, v := range mp.values {
		result[k] = v
	}
	return result, nil
}

var errNoWatch = errors.New("provider doesn't support watching")
