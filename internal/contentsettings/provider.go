// Package contentsettings resolves the configured farbling level for a host.
package contentsettings

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/farbler/internal/config"
	"github.com/xkilldash9x/farbler/internal/farbling"
)

// Rule maps a host pattern to a farbling level. Patterns use doublestar glob
// syntax against the lowercase host, e.g. "example.com", "*.example.com", "*".
type Rule struct {
	Pattern string
	Level   farbling.Level
}

// Provider holds the farbling rules of a browser profile. Rules are evaluated
// in order and the first match wins.
type Provider struct {
	defaultLevel farbling.Level
	rules        []Rule
	logger       *zap.Logger
}

// NewProvider validates rules and returns a provider.
func NewProvider(defaultLevel farbling.Level, rules []Rule, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !defaultLevel.Valid() {
		return nil, fmt.Errorf("%w: default level %d", farbling.ErrUnknownLevel, uint8(defaultLevel))
	}
	for i, r := range rules {
		if r.Pattern == "" || !doublestar.ValidatePattern(r.Pattern) {
			return nil, fmt.Errorf("rule %d: invalid host pattern %q", i, r.Pattern)
		}
		if !r.Level.Valid() {
			return nil, fmt.Errorf("rule %d: %w: %d", i, farbling.ErrUnknownLevel, uint8(r.Level))
		}
	}
	return &Provider{
		defaultLevel: defaultLevel,
		rules:        append([]Rule(nil), rules...),
		logger:       logger.Named("content_settings"),
	}, nil
}

// FromConfig builds a provider from the farbling section of the configuration.
func FromConfig(cfg config.FarblingConfig, logger *zap.Logger) (*Provider, error) {
	defaultLevel, err := cfg.Level()
	if err != nil {
		return nil, fmt.Errorf("farbling.default_level: %w", err)
	}
	rules := make([]Rule, 0, len(cfg.Rules))
	for i, rc := range cfg.Rules {
		level, err := farbling.ParseLevel(rc.Level)
		if err != nil {
			return nil, fmt.Errorf("farbling.rules[%d]: %w", i, err)
		}
		rules = append(rules, Rule{Pattern: strings.ToLower(rc.Pattern), Level: level})
	}
	return NewProvider(defaultLevel, rules, logger)
}

// LevelFor returns the level configured for host.
func (p *Provider) LevelFor(host string) farbling.Level {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, r := range p.rules {
		// Patterns were validated in NewProvider, so Match cannot fail.
		if ok, _ := doublestar.Match(r.Pattern, host); ok {
			p.logger.Debug("Content setting rule matched.",
				zap.String("host", host),
				zap.String("pattern", r.Pattern),
				zap.Stringer("level", r.Level),
			)
			return r.Level
		}
	}
	return p.defaultLevel
}

// ClientFor returns the settings client a frame showing host should use.
func (p *Provider) ClientFor(host string) farbling.ContentSettingsClient {
	return Client{level: p.LevelFor(host)}
}

// Client is a content-settings client fixed to one level for the lifetime
// of a frame.
type Client struct {
	level farbling.Level
}

// NewClient returns a client that always reports level.
func NewClient(level farbling.Level) Client { return Client{level: level} }

// FarblingLevel implements farbling.ContentSettingsClient.
func (c Client) FarblingLevel() farbling.Level { return c.level }
