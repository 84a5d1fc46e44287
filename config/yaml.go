package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFile loads a raw config layer from a YAML document. Keys follow the
// koanf tags on core.Config.
type YAMLFile struct {
	Path string
	// Optional makes a missing file an empty layer instead of an error.
	Optional bool
}

func (f YAMLFile) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if f.Optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML mapping into a raw layer map.
func ParseYAML(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return normalize(raw), nil
}

// normalize lower-cases keys so `Webhook:` and `webhook:` land on the same path.
func normalize(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		key = strings.ToLower(strings.TrimSpace(key))
		switch typed := value.(type) {
		case map[string]any:
			out[key] = normalize(typed)
		default:
			out[key] = typed
		}
	}
	return out
}
