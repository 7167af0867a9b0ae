package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "space", cfg.Parser.Strategy)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("PARSER_STRATEGY", "comma")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "comma", cfg.Parser.Strategy)
}

func TestDSN(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password= dbname=orders sslmode=disable",
		cfg.DSN())
}
