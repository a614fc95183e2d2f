// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/farbler/internal/farbling"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "farbler", cfg.Logger().ServiceName)
	assert.False(t, cfg.Logger().Development)
	assert.Equal(t, "balanced", cfg.Farbling().DefaultLevel)
	assert.Empty(t, cfg.Farbling().SessionKey)
	assert.Empty(t, cfg.Farbling().Rules)
	assert.Equal(t, farbling.DefaultPluginSpecs(), cfg.Farbling().Plugins.Synthetic)
	assert.Equal(t, 1000, cfg.Divergence().Samples)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Farbling Validation", func(t *testing.T) {
		valid := FarblingConfig{
			DefaultLevel: "maximum",
			SessionKey:   "00112233445566778899aabbccddeeff",
			Rules: []RuleConfig{
				{Pattern: "*.example.com", Level: "off"},
				{Pattern: "example.org", Level: "balanced"},
			},
			Plugins: PluginsConfig{Synthetic: farbling.DefaultPluginSpecs()},
		}
		require.NoError(t, valid.Validate())

		badLevel := valid
		badLevel.DefaultLevel = "paranoid"
		err := badLevel.Validate()
		assert.ErrorIs(t, err, farbling.ErrUnknownLevel)
		assert.Contains(t, err.Error(), "farbling.default_level")

		badKey := valid
		badKey.SessionKey = "not-hex"
		assert.ErrorContains(t, badKey.Validate(), "must be hex encoded")

		longKey := valid
		longKey.SessionKey = string(bytes.Repeat([]byte("ab"), 65))
		assert.ErrorContains(t, longKey.Validate(), "between 1 and 64 bytes")

		badPattern := valid
		badPattern.Rules = []RuleConfig{{Pattern: "[unclosed", Level: "off"}}
		assert.ErrorContains(t, badPattern.Validate(), "farbling.rules[0].pattern")

		badRuleLevel := valid
		badRuleLevel.Rules = []RuleConfig{{Pattern: "*", Level: "loud"}}
		assert.ErrorContains(t, badRuleLevel.Validate(), "farbling.rules[0].level")

		badSpec := valid
		badSpec.Plugins.Synthetic = []farbling.SyntheticSpec{{Name: farbling.FieldSpec{Label: "X", Length: 4}}, farbling.DefaultPluginSpecs()[1]}
		assert.ErrorContains(t, badSpec.Validate(), "farbling.plugins.synthetic[0].filename needs a label")

		noPlugins := valid
		noPlugins.Plugins.Synthetic = []farbling.SyntheticSpec{}
		assert.ErrorContains(t, noPlugins.Validate(), "must list exactly 2 plugins, got 0")

		onePlugin := valid
		onePlugin.Plugins.Synthetic = farbling.DefaultPluginSpecs()[:1]
		assert.ErrorContains(t, onePlugin.Validate(), "must list exactly 2 plugins, got 1")

		sameField := valid
		sameField.Plugins.Synthetic = farbling.DefaultPluginSpecs()
		sameField.Plugins.Synthetic[0].Filename.Label = sameField.Plugins.Synthetic[0].Name.Label
		assert.ErrorContains(t, sameField.Validate(), `farbling.plugins.synthetic[0].filename reuses label "PLUGIN_1_NAME"`)

		samePlugin := valid
		samePlugin.Plugins.Synthetic = farbling.DefaultPluginSpecs()
		samePlugin.Plugins.Synthetic[1].Description.Label = "PLUGIN_1_DESCRIPTION"
		assert.ErrorContains(t, samePlugin.Validate(), "farbling.plugins.synthetic[1].description reuses label")
	})

	t.Run("Divergence Validation", func(t *testing.T) {
		valid := DivergenceConfig{Samples: 10, Concurrency: 2, StringLength: 8}
		assert.NoError(t, valid.Validate())

		noSamples := valid
		noSamples.Samples = 0
		assert.ErrorContains(t, noSamples.Validate(), "divergence.samples must be a positive integer")

		noWorkers := valid
		noWorkers.Concurrency = -1
		assert.ErrorContains(t, noWorkers.Validate(), "divergence.concurrency must be a positive integer")

		noLength := valid
		noLength.StringLength = 0
		assert.ErrorContains(t, noLength.Validate(), "divergence.string_length must be a positive integer")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: debug
  development: true
farbling:
  default_level: maximum
  rules:
    - pattern: "*.example.com"
      level: "off"
    - pattern: "news.example.org"
      level: balanced
  plugins:
    synthetic:
      - name: {label: FAKE_NAME, length: 5}
        filename: {label: FAKE_FILE, length: 6}
        description: {label: FAKE_DESC, length: 7}
      - name: {label: OTHER_NAME, length: 4}
        filename: {label: OTHER_FILE, length: 4}
        description: {label: OTHER_DESC, length: 4}
divergence:
  samples: 50
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger().Level)
		assert.True(t, cfg.Logger().Development)
		level, err := cfg.Farbling().Level()
		require.NoError(t, err)
		assert.Equal(t, farbling.Maximum, level)
		require.Len(t, cfg.Farbling().Rules, 2)
		assert.Equal(t, RuleConfig{Pattern: "*.example.com", Level: "off"}, cfg.Farbling().Rules[0])
		require.Len(t, cfg.Farbling().Plugins.Synthetic, 2)
		assert.Equal(t, farbling.FieldSpec{Label: "FAKE_FILE", Length: 6}, cfg.Farbling().Plugins.Synthetic[0].Filename)
		assert.Equal(t, 50, cfg.Divergence().Samples)
		// Check a default value was also loaded
		assert.Equal(t, 8, cfg.Divergence().Concurrency)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("divergence.samples", 0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "divergence.samples must be a positive integer")
	})

	t.Run("Empty Synthetic Plugin List", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString("farbling:\n  plugins:\n    synthetic: []\n")))

		cfg, err := NewConfigFromViper(v)
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "must list exactly 2 plugins, got 0")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		t.Setenv("FARBLER_SESSION_KEY", "deadbeef")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "deadbeef", cfg.Farbling().SessionKey)

		key, err := cfg.Farbling().DecodedSessionKey()
		require.NoError(t, err)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, key)
	})
}

func TestConfigSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetFarblingDefaultLevel("off")
	cfg.SetFarblingSessionKey("0102")
	cfg.SetDivergenceSamples(3)

	assert.Equal(t, "off", cfg.Farbling().DefaultLevel)
	assert.Equal(t, "0102", cfg.Farbling().SessionKey)
	assert.Equal(t, 3, cfg.Divergence().Samples)

	key, err := NewDefaultConfig().Farbling().DecodedSessionKey()
	require.NoError(t, err)
	assert.Nil(t, key, "an unset key decodes to nil")
}
