package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: vuelavuela
database:
  path: data/test.db
auth:
  jwt_secret: super-secret
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "http://localhost:3000", cfg.App.BaseURL)
	assert.Equal(t, 14, cfg.Backup.RetentionDays)
	assert.Contains(t, cfg.Mail.From, "Vuela Vuela")
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, `
database:
  path: data/test.db
auth:
  jwt_secret: ${TEST_JWT_SECRET}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, `
auth:
  jwt_secret: x
`))
	assert.ErrorContains(t, err, "database path")

	_, err = Load(writeConfig(t, `
database:
  path: data/test.db
`))
	assert.ErrorContains(t, err, "jwt secret")
}

func TestValidate_MailRequiresKeyAndAddress(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
mail:
  enabled: true
`))
	assert.ErrorContains(t, err, "resend_api_key")

	_, err = Load(writeConfig(t, minimalConfig+`
mail:
  enabled: true
  resend_api_key: re_123
`))
	assert.ErrorContains(t, err, "agency_email")
}

func TestValidate_AgentEmails(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
`))
	require.NoError(t, err)

	_, err = Load(writeConfig(t, minimalConfig+`
  agent_emails:
    - not-an-email
`))
	assert.Error(t, err)
}

func TestIsAgentEmail(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.AgentEmails = []string{"Agency@Example.com"}

	assert.True(t, cfg.IsAgentEmail("agency@example.com"))
	assert.True(t, cfg.IsAgentEmail("  AGENCY@EXAMPLE.COM  "))
	assert.False(t, cfg.IsAgentEmail("client@example.com"))
}
