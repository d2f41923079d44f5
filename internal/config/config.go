// Package config loads experiment config files.
//
// A config file is a YAML document with two top-level tables: an
// experiment header (name, output directory, initial data values) and a
// part table describing the part graph. Table shapes are validated
// against an embedded CUE schema; the part table is walked as a yaml.Node
// tree so that declaration order survives into the flattened part list.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

// Config is one loaded experiment config file.
type Config struct {
	// Path is the cleaned path of the config file.
	Path string

	// Name is the experiment name.
	Name string

	// OutDir is the run output directory, resolved against the config
	// file's directory when given as a relative path.
	OutDir string

	// Initial seeds the experiment data store.
	Initial value.Map

	// StartHere is the full name of the part the run starts at, "" when
	// the researcher picks the first part.
	StartHere string

	// Parts is the flattened part list in declaration order, parents
	// before their children.
	Parts []part.Config
}

// Load reads and validates an experiment config file.
func Load(path string) (*Config, error) {
	path = filepath.Clean(path)
	root, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	expNode := mappingChild(root, "experiment")
	if expNode == nil {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: missing experiment table", path)}
	}
	cfg := &Config{Path: path}
	if err := parseExperiment(path, expNode, cfg); err != nil {
		return nil, err
	}

	partNode := mappingChild(root, "part")
	if partNode == nil {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: missing part table", path)}
	}
	cfg.StartHere, cfg.Parts, err = extractPartTable(path, partNode, "")
	if err != nil {
		return nil, err
	}
	if len(cfg.Parts) == 0 {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: no parts found", path)}
	}
	return cfg, nil
}

// LoadPartTable reads only the part table of a config file, prefixing
// every part name with the given flow full name. Used by flows that load
// their sub-graph from another file.
func LoadPartTable(path, prefix string) (first string, parts []part.Config, err error) {
	path = filepath.Clean(path)
	root, err := loadDocument(path)
	if err != nil {
		return "", nil, err
	}
	partNode := mappingChild(root, "part")
	if partNode == nil {
		return "", nil, &part.ConfigError{Message: fmt.Sprintf("%s: missing part table", path)}
	}
	return extractPartTable(path, partNode, prefix)
}

func loadDocument(path string) (*yaml.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if len(doc.Content) == 0 {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: empty config", path)}
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, &part.ConfigError{Message: fmt.Sprintf("%s: config must be a mapping", path)}
	}
	return root, nil
}

func parseExperiment(path string, node *yaml.Node, cfg *Config) error {
	var table map[string]any
	if err := node.Decode(&table); err != nil {
		return &part.ConfigError{Message: fmt.Sprintf("%s: experiment table: %v", path, err)}
	}
	if err := validateShape("#Experiment", table); err != nil {
		return &part.ConfigError{Message: fmt.Sprintf("%s: experiment table: %v", path, err)}
	}

	cfg.Name, _ = table["name"].(string)
	outDir, _ := table["out_dir"].(string)
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(filepath.Dir(path), outDir)
	}
	cfg.OutDir = filepath.Clean(outDir)

	if rawInit, ok := table["initial_values"]; ok {
		initAny, ok := rawInit.(map[string]any)
		if !ok {
			return &part.ConfigError{Message: fmt.Sprintf("%s: initial_values must be a mapping", path)}
		}
		initial, err := value.MapFromAny(initAny)
		if err != nil {
			return &part.ConfigError{Message: fmt.Sprintf("%s: initial_values: %v", path, err)}
		}
		cfg.Initial = initial
	}
	return nil
}

// mappingChild finds the value node for a key of a mapping node.
func mappingChild(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return resolveAlias(node.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	if node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		return node.Alias
	}
	return node
}
