package parts

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/crucible/internal/config"
	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/value"
)

// loadFlow populates its sub-graph from another config file. The file
// path comes from the "path" config value (loaded once at construction)
// or from the "path" input (reloaded every time the flow begins). Loading
// removes all previously loaded children first. Relative paths resolve
// against the config file that defined this part.
type loadFlow struct {
	*part.Base
	first string
}

func newLoadFlow(ctx *part.Context) (part.Part, error) {
	f := &loadFlow{Base: part.NewBase(ctx)}
	v, err := f.ConfigValue("path", part.Allow(value.KindString), part.Optional())
	if err != nil {
		return nil, err
	}
	if path, ok := value.AsString(v); ok && path != "" {
		if err := f.loadFrom(path); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *loadFlow) BeginFlow() (part.Route, error) {
	v, err := f.Input("path", part.Allow(value.KindString), part.Optional())
	if err != nil {
		return part.Undecided, err
	}
	if path, ok := value.AsString(v); ok && path != "" {
		if err := f.loadFrom(path); err != nil {
			return part.Undecided, err
		}
	}
	return part.RouteToPart(f.first), nil
}

func (f *loadFlow) EndFlow() error { return nil }

func (f *loadFlow) loadFrom(path string) error {
	host := f.Host()
	prefix := f.FullName() + "."
	for _, full := range host.PartNames() {
		if strings.HasPrefix(full, prefix) {
			host.RemovePart(full)
		}
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(filepath.Dir(f.ConfigSource()), abs)
	}
	abs = filepath.Clean(abs)

	first, configs, err := config.LoadPartTable(abs, f.FullName())
	if err != nil {
		return &part.ConfigError{
			Part:    f.FullName(),
			Field:   "path",
			Message: fmt.Sprintf("failed to load parts from %q: %v", path, err),
		}
	}
	if len(configs) == 0 {
		return &part.ConfigError{
			Part:    f.FullName(),
			Field:   "path",
			Message: fmt.Sprintf("no parts found in %q", path),
		}
	}
	// via the host, not AddChild: the first load happens during
	// construction, before the engine has assigned this part its role
	for _, cfg := range configs {
		if err := host.AddPart(cfg); err != nil {
			return err
		}
	}
	f.first = first
	return nil
}
