package courseconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlahtinen/gradery/internal/domain"
)

// The supported config formats, selected by file extension.
var formatExts = []string{"json", "yaml"}

func knownFormat(ext string) bool {
	for _, e := range formatExts {
		if ext == e {
			return true
		}
	}
	return false
}

// FindConfig resolves a config path that may lack its format extension.
// Exactly one of path.json and path.yaml must exist; several candidates are
// ambiguous and none is missing, both configuration errors.
func FindConfig(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if knownFormat(ext) {
			return path, nil
		}
	}

	found := ""
	for _, ext := range formatExts {
		candidate := path + "." + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if found != "" {
				return "", domain.Configf(path, "multiple config files for %q", path)
			}
			found = candidate
		}
	}
	if found == "" {
		return "", domain.Configf(path, "no supported config at %q", path)
	}
	return found, nil
}

// ParseFile reads and parses a config file into a Document.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseBytes(data, path)
}

// parseBytes parses raw config text by the extension of path.
func parseBytes(data []byte, path string) (Document, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	var doc map[string]any
	switch ext {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &domain.ConfigError{File: path, Msg: "configuration error", Err: err}
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &domain.ConfigError{File: path, Msg: "configuration error", Err: err}
		}
	default:
		return nil, domain.Configf(path, "unsupported format %q", ext)
	}
	return Document(doc), nil
}
