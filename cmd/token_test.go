// File: cmd/token_test.go
package cmd

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCmd_MintsVerifiableToken(t *testing.T) {
	resetForTest(t)
	cfgPath := writeConfig(t, t.TempDir())
	secret := strings.Repeat("k", 40)
	t.Setenv("PUPPETRY_SERVER_AUTH_SECRET", secret)

	out, err := runCommand(t, "token", "--config", cfgPath, "--subject", "ci")
	require.NoError(t, err)

	raw := strings.TrimSpace(out)
	parsed, err := jwt.Parse(raw,
		func(tk *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "ci", sub)
	iss, err := parsed.Claims.GetIssuer()
	require.NoError(t, err)
	assert.Equal(t, "puppetry", iss)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	resetForTest(t)
	cfgPath := writeConfig(t, t.TempDir())

	_, err := runCommand(t, "token", "--config", cfgPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth_secret")
}

func TestTokenCmd_RejectsNonPositiveTTL(t *testing.T) {
	resetForTest(t)
	cfgPath := writeConfig(t, t.TempDir())
	t.Setenv("PUPPETRY_SERVER_AUTH_SECRET", strings.Repeat("k", 40))

	_, err := runCommand(t, "token", "--config", cfgPath, "--ttl", "0s")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ttl")
}
