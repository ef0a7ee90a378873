package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port    int      `env:"TEST_LOADER_PORT" envDefault:"8080"`
	Name    string   `env:"TEST_LOADER_NAME" envDefault:"wishlist"`
	Origins []string `env:"TEST_LOADER_ORIGINS" envDefault:"a,b" envSeparator:","`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "wishlist", cfg.Name)
	assert.Equal(t, []string{"a", "b"}, cfg.Origins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TEST_LOADER_PORT", "9090")
	t.Setenv("TEST_LOADER_ORIGINS", "https://x.example,https://y.example")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, cfg.Origins)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_LOADER_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
