// internal/browser/plugins/plugin_array.go
package plugins

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Info is the data backing one plugin as reported by the embedder.
type Info struct {
	Name        string `json:"name"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// Plugin is the script-visible wrapper around an Info.
type Plugin struct {
	info Info
}

// Name returns the plugin name, as navigator.plugins[i].name reports it.
func (p *Plugin) Name() string { return p.info.Name }

// Filename returns the plugin file name.
func (p *Plugin) Filename() string { return p.info.Filename }

// Description returns the human-readable plugin description.
func (p *Plugin) Description() string { return p.info.Description }

// Info returns a copy of the plugin data.
func (p *Plugin) Info() Info { return p.info }

// Option configures a PluginArray.
type Option func(*PluginArray)

// WithSyntheticSpecs replaces the fake plugins that farbling appends.
func WithSyntheticSpecs(specs []farbling.SyntheticSpec) Option {
	return func(a *PluginArray) {
		a.specs = append([]farbling.SyntheticSpec(nil), specs...)
	}
}

// WithLogger sets the logger used for farbling diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(a *PluginArray) {
		if logger != nil {
			a.logger = logger.Named("plugin_array")
		}
	}
}

// PluginArray is the navigator.plugins list of one frame.
//
// Wrappers are created lazily: after a refresh every slot holds a nil
// placeholder that Item fills from the source list at the same index. The
// farbling pass therefore materializes every slot before it changes the shape
// of the list, since an appended or reordered slot no longer lines up with the
// source list.
type PluginArray struct {
	ctx     farbling.Context
	source  []Info
	plugins []*Plugin
	specs   []farbling.SyntheticSpec
	logger  *zap.Logger
}

// New creates the plugin array of ctx and populates it from reported.
func New(ctx farbling.Context, reported []Info, opts ...Option) *PluginArray {
	a := &PluginArray{
		ctx:    ctx,
		specs:  farbling.DefaultPluginSpecs(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.UpdatePluginData(reported)
	return a
}

// Length returns the number of visible plugins.
func (a *PluginArray) Length() int { return len(a.plugins) }

// Item returns the plugin at index, or nil when out of range.
func (a *PluginArray) Item(index int) *Plugin {
	if index < 0 || index >= len(a.plugins) {
		return nil
	}
	if a.plugins[index] == nil {
		// Placeholders only exist for slots that still mirror the source list.
		a.plugins[index] = &Plugin{info: a.source[index]}
	}
	return a.plugins[index]
}

// NamedItem returns the first plugin called name, or nil.
func (a *PluginArray) NamedItem(name string) *Plugin {
	for i := range a.plugins {
		if p := a.Item(i); p.Name() == name {
			return p
		}
	}
	return nil
}

// Names returns the visible plugin names in order.
func (a *PluginArray) Names() []string {
	names := make([]string, len(a.plugins))
	for i := range a.plugins {
		names[i] = a.Item(i).Name()
	}
	return names
}

// Infos returns the visible plugin data in order.
func (a *PluginArray) Infos() []Info {
	out := make([]Info, len(a.plugins))
	for i := range a.plugins {
		out[i] = a.Item(i).Info()
	}
	return out
}

// Refresh re-reads reported from the embedder, as navigator.plugins.refresh does.
func (a *PluginArray) Refresh(reported []Info) { a.UpdatePluginData(reported) }

// UpdatePluginData replaces the list with reported and applies the farbling level
// of the owning frame.
func (a *PluginArray) UpdatePluginData(reported []Info) {
	a.source = append([]Info(nil), reported...)
	a.plugins = make([]*Plugin, len(a.source))

	level, cache := farbling.Resolve(a.ctx, a.logger)
	farbling.FarbleCollection[*Plugin](level, cache, (*collection)(a), a.specs, fromSynthetic, a.logger)
}

func fromSynthetic(e farbling.SyntheticEntry) *Plugin {
	return &Plugin{info: Info{Name: e.Name, Filename: e.Filename, Description: e.Description}}
}

// collection exposes a PluginArray to the farbling pass.
type collection PluginArray

func (c *collection) Len() int { return len(c.plugins) }

func (c *collection) Materialize() {
	a := (*PluginArray)(c)
	for i := range a.plugins {
		a.Item(i)
	}
}

func (c *collection) Clear() {
	c.plugins = nil
	c.source = nil
}

func (c *collection) Append(entries ...*Plugin) { c.plugins = append(c.plugins, entries...) }

func (c *collection) Swap(i, j int) { c.plugins[i], c.plugins[j] = c.plugins[j], c.plugins[i] }
