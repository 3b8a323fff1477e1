package modelconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelcore/internal/status"
)

// ConfigFileNames lists the model configuration file names probed inside a
// model directory, in priority order.
var ConfigFileNames = []string{"config.yaml", "config.yml", "config.json", "config.toml"}

// LoadFile reads a model configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (ModelConfig, error) {
	var cfg ModelConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, status.Newf(status.NotFound, "model configuration %s does not exist", path)
		}
		return cfg, status.Newf(status.Internal, "failed to read model configuration %s: %v", path, err)
	}
	if err := Decode(b, filepath.Ext(path), &cfg); err != nil {
		return cfg, status.Newf(status.InvalidArgument, "failed to parse model configuration %s: %v", path, err)
	}
	return cfg, nil
}

// Decode unmarshals b into cfg using the decoder for ext.
func Decode(b []byte, ext string, cfg *ModelConfig) error {
	switch ext = strings.ToLower(ext); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	case ".json":
		return json.Unmarshal(b, cfg)
	case ".toml":
		return toml.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
}

// FindConfigFile returns the first configuration file present in dir.
func FindConfigFile(dir string) (string, bool) {
	for _, name := range ConfigFileNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}
