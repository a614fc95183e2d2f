// internal/farbling/collection.go
package farbling

import "go.uber.org/zap"

// MutableCollection is the handle a call site passes to FarbleCollection. It
// wraps the call site's real, possibly lazily populated, collection.
type MutableCollection[T any] interface {
	Len() int
	// Materialize resolves every placeholder entry so that later shape
	// changes cannot invalidate an indexed view kept by the owner.
	Materialize()
	Clear()
	Append(entries ...T)
	Swap(i, j int)
}

// FieldSpec names one fabricated string field and its length.
type FieldSpec struct {
	Label  string `mapstructure:"label" yaml:"label"`
	Length int    `mapstructure:"length" yaml:"length"`
}

// SyntheticSpec describes the fields of one fabricated collection entry.
type SyntheticSpec struct {
	Name        FieldSpec `mapstructure:"name" yaml:"name"`
	Filename    FieldSpec `mapstructure:"filename" yaml:"filename"`
	Description FieldSpec `mapstructure:"description" yaml:"description"`
}

// SyntheticEntry is a fabricated entry generated from a SyntheticSpec.
type SyntheticEntry struct {
	Name        string
	Filename    string
	Description string
}

// Generate produces the entry for spec in the context owning cache.
func (s SyntheticSpec) Generate(cache *SessionCache) SyntheticEntry {
	return SyntheticEntry{
		Name:        cache.GenerateRandomString(s.Name.Label, s.Name.Length),
		Filename:    cache.GenerateRandomString(s.Filename.Label, s.Filename.Length),
		Description: cache.GenerateRandomString(s.Description.Label, s.Description.Length),
	}
}

// DefaultPluginSpecs returns the two fake plugins appended to plugin lists.
func DefaultPluginSpecs() []SyntheticSpec {
	return []SyntheticSpec{
		{
			Name:        FieldSpec{Label: "PLUGIN_1_NAME", Length: 8},
			Filename:    FieldSpec{Label: "PLUGIN_1_FILENAME", Length: 16},
			Description: FieldSpec{Label: "PLUGIN_1_DESCRIPTION", Length: 32},
		},
		{
			Name:        FieldSpec{Label: "PLUGIN_2_NAME", Length: 7},
			Filename:    FieldSpec{Label: "PLUGIN_2_FILENAME", Length: 15},
			Description: FieldSpec{Label: "PLUGIN_2_DESCRIPTION", Length: 31},
		},
	}
}

// CollectionStep is one transform applied to a farbled collection.
type CollectionStep uint8

// Collection steps, in the order Maximum applies them.
const (
	StepClear CollectionStep = iota
	StepMaterialize
	StepAppendSynthetic
	StepShuffle
)

func (s CollectionStep) String() string {
	switch s {
	case StepClear:
		return "clear"
	case StepMaterialize:
		return "materialize"
	case StepAppendSynthetic:
		return "append_synthetic"
	case StepShuffle:
		return "shuffle"
	default:
		return "unknown"
	}
}

// CollectionSteps returns the transforms for level, in order. Maximum is the
// clear step followed by the Balanced steps. An undefined level is reported as
// an invariant violation and yields no steps.
func CollectionSteps(level Level, logger *zap.Logger) []CollectionStep {
	balanced := []CollectionStep{StepMaterialize, StepAppendSynthetic, StepShuffle}
	switch level {
	case Off:
		return nil
	case Balanced:
		return balanced
	case Maximum:
		return append([]CollectionStep{StepClear}, balanced...)
	default:
		unreachableLevel(logger, "collection", level)
		return nil
	}
}

// FarbleCollection applies the collection policy for level to coll. Synthetic
// entries are generated from specs and converted with build. cache may only be
// nil when level is Off.
func FarbleCollection[T any](
	level Level,
	cache *SessionCache,
	coll MutableCollection[T],
	specs []SyntheticSpec,
	build func(SyntheticEntry) T,
	logger *zap.Logger,
) {
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := CollectionSteps(level, logger)
	if len(steps) == 0 {
		return
	}
	if cache == nil {
		logger.DPanic("Collection farbling requested without a session cache.", zap.Stringer("level", level))
		return
	}

	for _, step := range steps {
		switch step {
		case StepClear:
			coll.Clear()
		case StepMaterialize:
			coll.Materialize()
		case StepAppendSynthetic:
			for _, spec := range specs {
				coll.Append(build(spec.Generate(cache)))
			}
		case StepShuffle:
			cache.MakePseudoRandomGenerator().Shuffle(coll.Len(), coll.Swap)
		}
	}
	logger.Debug("Collection farbled.",
		zap.Stringer("level", level),
		zap.String("site", cache.Key().Site()),
		zap.Int("length", coll.Len()),
	)
}

// Slice adapts a fully materialized slice to MutableCollection.
type Slice[T any] []T

func (s *Slice[T]) Len() int            { return len(*s) }
func (s *Slice[T]) Materialize()        {}
func (s *Slice[T]) Clear()              { *s = nil }
func (s *Slice[T]) Append(entries ...T) { *s = append(*s, entries...) }
func (s *Slice[T]) Swap(i, j int)       { (*s)[i], (*s)[j] = (*s)[j], (*s)[i] }
