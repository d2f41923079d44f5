package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

// Keys with meaning to the loader. Everything else inside a part table is
// a nested part.
var reservedKeys = map[string]bool{
	"type_name":     true,
	"next_part":     true,
	"first_part":    true,
	"config_values": true,
	"input_names":   true,
	"output_names":  true,
}

// extractPartTable flattens a part table node into part configs, parents
// before children, preserving declaration order. Part names are prefixed
// with the given flow full name ("" for the top level).
func extractPartTable(source string, node *yaml.Node, prefix string) (string, []part.Config, error) {
	if node.Kind != yaml.MappingNode {
		return "", nil, &part.ConfigError{Message: fmt.Sprintf("%s: part table must be a mapping", source)}
	}
	first := ""
	var parts []part.Config
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := resolveAlias(node.Content[i+1])
		switch key {
		case "start_here", "first_part":
			first = val.Value
		default:
			fullName := part.Qualify(prefix, key)
			if err := extractPart(source, val, fullName, &parts); err != nil {
				return "", nil, err
			}
		}
	}
	return first, parts, nil
}

func extractPart(source string, node *yaml.Node, fullName string, out *[]part.Config) error {
	if node.Kind != yaml.MappingNode {
		return &part.ConfigError{
			Part:    fullName,
			Message: fmt.Sprintf("%s: part must be a mapping", source),
		}
	}
	var table map[string]any
	if err := node.Decode(&table); err != nil {
		return &part.ConfigError{Part: fullName, Message: fmt.Sprintf("%s: %v", source, err)}
	}
	if err := validateShape("#Part", table); err != nil {
		return &part.ConfigError{Part: fullName, Message: fmt.Sprintf("%s: %v", source, err)}
	}

	cfg, err := buildConfig(source, fullName, table)
	if err != nil {
		return err
	}
	*out = append(*out, cfg)

	// nested parts, in declaration order
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if reservedKeys[key] {
			continue
		}
		child := resolveAlias(node.Content[i+1])
		if err := extractPart(source, child, fullName+"."+key, out); err != nil {
			return err
		}
	}
	return nil
}

func buildConfig(source, fullName string, table map[string]any) (part.Config, error) {
	raw, err := value.MapFromAny(table)
	if err != nil {
		return part.Config{}, &part.ConfigError{Part: fullName, Message: err.Error()}
	}
	cfg := part.Config{
		FullName: fullName,
		Source:   source,
		Raw:      raw,
	}
	cfg.TypeName, _ = table["type_name"].(string)
	cfg.First, _ = table["first_part"].(string)

	switch next := table["next_part"].(type) {
	case nil:
	case string:
		cfg.Next = map[string]string{"": next}
	case map[string]any:
		cfg.Next = make(map[string]string, len(next))
		for route, dest := range next {
			name, ok := dest.(string)
			if !ok {
				return part.Config{}, &part.ConfigError{
					Part:    fullName,
					Field:   "next_part",
					Message: fmt.Sprintf("route %q must name a part", route),
				}
			}
			cfg.Next[route] = name
		}
	default:
		return part.Config{}, &part.ConfigError{
			Part:    fullName,
			Field:   "next_part",
			Message: "must be a part name or a route mapping",
		}
	}

	if rawValues, ok := table["config_values"]; ok {
		tbl, ok := rawValues.(map[string]any)
		if !ok {
			return part.Config{}, &part.ConfigError{
				Part:    fullName,
				Field:   "config_values",
				Message: "must be a mapping",
			}
		}
		values, err := value.MapFromAny(tbl)
		if err != nil {
			return part.Config{}, &part.ConfigError{Part: fullName, Field: "config_values", Message: err.Error()}
		}
		cfg.Values = values
	}

	cfg.Inputs, err = nameMapping(fullName, "input_names", table)
	if err != nil {
		return part.Config{}, err
	}
	cfg.Outputs, err = nameMapping(fullName, "output_names", table)
	if err != nil {
		return part.Config{}, err
	}
	return cfg, nil
}

func nameMapping(fullName, field string, table map[string]any) (map[string]string, error) {
	raw, ok := table[field]
	if !ok {
		return nil, nil
	}
	tbl, ok := raw.(map[string]any)
	if !ok {
		return nil, &part.ConfigError{Part: fullName, Field: field, Message: "must be a mapping"}
	}
	out := make(map[string]string, len(tbl))
	for name, target := range tbl {
		dest, ok := target.(string)
		if !ok {
			return nil, &part.ConfigError{
				Part:    fullName,
				Field:   field,
				Message: fmt.Sprintf("%q must map to a data name", name),
			}
		}
		out[name] = dest
	}
	return out, nil
}
