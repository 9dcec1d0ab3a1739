package specifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// aliasFile is the on-disk alias format:
//
//	aliases:
//	  crypto-browserify: crypto
//	  safe-buffer: buffer
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases" toml:"aliases"`
}

// LoadAliases reads extra specifier mappings from a YAML (.yaml, .yml) or
// TOML (.toml) file. Every target must be a known polyfill.
func LoadAliases(path string) (map[string]ID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}
	return ParseAliases(data, filepath.Ext(path))
}

// ParseAliases decodes alias data in the format named by ext.
func ParseAliases(data []byte, ext string) (map[string]ID, error) {
	var file aliasFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported alias file extension %q", ext)
	}

	aliases := make(map[string]ID, len(file.Aliases))
	for spec, target := range file.Aliases {
		id := ID(target)
		if !Known(id) || id == Globals {
			return nil, fmt.Errorf("alias %q targets unknown polyfill %q", spec, target)
		}
		if StripScheme(spec) == "" {
			return nil, fmt.Errorf("alias for %q has an empty specifier", target)
		}
		aliases[spec] = id
	}
	return aliases, nil
}
