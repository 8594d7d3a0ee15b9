package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MVitabar/Notas-Frontend-sub001/pkg/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	raw := dsn(config.DatabaseConfig{Host: "db", Port: 5432, User: "audit", Password: "p@ss word", Name: "periods"})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/periods", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "period-gateway", u.Query().Get("application_name"))
}

func TestDSNKeepsExplicitSSLMode(t *testing.T) {
	u, err := url.Parse(dsn(config.DatabaseConfig{Host: "db", Port: 5432, SSLMode: "require"}))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
