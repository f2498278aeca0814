package source

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Constructor builds a source from the shared config
type Constructor func(cfg *Config) (Source, error)

// Factory creates sources by type
type Factory struct {
	constructors map[SourceType]Constructor
	mu           sync.RWMutex
}

// NewFactory creates a new source factory with the built-in source types
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[SourceType]Constructor),
	}

	f.RegisterSource(SourceTypeSynthetic, func(cfg *Config) (Source, error) {
		return NewSyntheticSource(cfg), nil
	})
	f.RegisterSource(SourceTypeFile, func(cfg *Config) (Source, error) {
		return NewFileSource(cfg)
	})
	f.RegisterSource(SourceTypeNATS, func(cfg *Config) (Source, error) {
		return NewNATSSource(cfg)
	})

	return f
}

// CreateSource creates a source for the given type
func (f *Factory) CreateSource(sourceType SourceType, cfg *Config) (Source, error) {
	f.mu.RLock()
	constructor, exists := f.constructors[sourceType]
	f.mu.RUnlock()

	if !exists {
		return nil, NewSourceError(
			sourceType, "", ErrCodeUnsupported,
			fmt.Sprintf("unsupported source type: %s", sourceType),
			nil,
		)
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}

	return constructor(cfg)
}

// DetectAndCreate picks the source type from the target and creates it
func (f *Factory) DetectAndCreate(cfg *Config) (Source, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return f.CreateSource(DetectType(cfg.Target), cfg)
}

// RegisterSource registers a constructor, replacing any existing one
func (f *Factory) RegisterSource(sourceType SourceType, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.constructors[sourceType] = constructor
}

// SupportedTypes returns the registered source types in sorted order
func (f *Factory) SupportedTypes() []SourceType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]SourceType, 0, len(f.constructors))
	for sourceType := range f.constructors {
		types = append(types, sourceType)
	}
	slices.Sort(types)
	return types
}

// DetectType infers a source type from a target string
func DetectType(target string) SourceType {
	target = strings.TrimSpace(target)
	lower := strings.ToLower(target)

	switch {
	case target == "", lower == string(SourceTypeSynthetic):
		return SourceTypeSynthetic
	case strings.HasPrefix(lower, "nats://"), strings.HasPrefix(lower, "tls://"):
		return SourceTypeNATS
	case strings.Contains(lower, "://"):
		return SourceTypeUnsupported
	default:
		return SourceTypeFile
	}
}

// ParseSourceType maps a config string to a SourceType
func ParseSourceType(s string) SourceType {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourceTypeSynthetic:
		return SourceTypeSynthetic
	case SourceTypeFile:
		return SourceTypeFile
	case SourceTypeNATS:
		return SourceTypeNATS
	default:
		return SourceTypeUnsupported
	}
}
