// Package config provides a typed key->value view over a config source
// (INI or YAML), with per-key defaults. Missing keys or type-coercion
// failures return the supplied default rather than an error; only load-time
// failures (unreadable file, unparsable content, unsupported extension) are
// errors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config is a typed key->value lookup with defaults. All three accessors
// are total: a missing key or a value that cannot be coerced to the
// requested type returns def, never an error.
type Config interface {
	GetString(key string, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable
// values, leaving unmatched patterns untouched. Mirrors the teacher's
// hot-reload substitution so config files can reference secrets.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads path and returns a Config backed by the parser its extension
// selects (.ini, or .yaml/.yml). An unsupported extension is a fatal
// construction error, matching spec §4.2.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	data = substituteEnvVars(data)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ini":
		return loadINI(data)
	case ".yaml", ".yml":
		return loadYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config extension %q (want .ini, .yaml, or .yml)", ext)
	}
}

// --- INI backend ---

type iniConfig struct {
	file *ini.File
}

func loadINI(data []byte) (Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing ini config: %w", err)
	}
	return &iniConfig{file: f}, nil
}

func (c *iniConfig) key(k string) *ini.Key {
	return c.file.Section("").Key(k)
}

func (c *iniConfig) GetString(key, def string) string {
	k := c.key(key)
	if k == nil || k.String() == "" {
		return def
	}
	return k.String()
}

func (c *iniConfig) GetInt(key string, def int) int {
	k := c.key(key)
	if k == nil || k.String() == "" {
		return def
	}
	v, err := k.Int()
	if err != nil {
		return def
	}
	return v
}

func (c *iniConfig) GetBool(key string, def bool) bool {
	k := c.key(key)
	if k == nil || k.String() == "" {
		return def
	}
	v, err := k.Bool()
	if err != nil {
		return def
	}
	return v
}

// --- YAML backend ---

// yamlConfig wraps a flat top-level YAML mapping. Spec §6 keys live at the
// document's top level ("default section"), so nested structure is not
// consulted.
type yamlConfig struct {
	values map[string]any
}

func loadYAML(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing yaml config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &yamlConfig{values: raw}, nil
}

func (c *yamlConfig) GetString(key, def string) string {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case int, int64, float64, bool:
		return fmt.Sprint(t)
	default:
		return def
	}
}

func (c *yamlConfig) GetInt(key string, def int) int {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

func (c *yamlConfig) GetBool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}
