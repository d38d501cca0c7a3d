package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumcred/internal/credential/models"
)

func envFrom(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{"CREDENTIAL_SELF_SIGNING": "forbid"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, models.SelfSigningForbid, cfg.Registry.SelfSigning)
	assert.Equal(t, models.ThresholdUnbounded, cfg.Registry.ThresholdPolicy)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, devSigningKey, cfg.Auth.JWTSigningKey)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Metadata.Pinning())
}

func TestLoad_SelfSigningPolicyIsRequired(t *testing.T) {
	_, err := load(envFrom(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDENTIAL_SELF_SIGNING")
}

func TestLoad_ReportsEveryInvalidVariable(t *testing.T) {
	_, err := load(envFrom(map[string]string{
		"CREDENTIAL_SELF_SIGNING":     "allow",
		"CREDENTIAL_THRESHOLD_POLICY": "strict",
		"TOKEN_TTL":                   "soon",
		"REDIS_POOL_SIZE":             "-1",
		"BOOTSTRAP_VALIDATORS":        "0x00000000000000000000000000000000000000a1,nope",
	}))
	require.Error(t, err)
	for _, key := range []string{"CREDENTIAL_THRESHOLD_POLICY", "TOKEN_TTL", "REDIS_POOL_SIZE", "BOOTSTRAP_VALIDATORS"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_Bootstrap(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{
		"CREDENTIAL_SELF_SIGNING":     "allow",
		"CREDENTIAL_THRESHOLD_POLICY": "validator_count",
		"BOOTSTRAP_ISSUERS":           "0x0000000000000000000000000000000000000015",
		"BOOTSTRAP_VALIDATORS":        "0x00000000000000000000000000000000000000a1, 0x00000000000000000000000000000000000000a2",
	}))
	require.NoError(t, err)
	assert.Len(t, cfg.Registry.BootstrapIssuers, 1)
	assert.Len(t, cfg.Registry.BootstrapValidators, 2)
	assert.Equal(t, models.ThresholdValidatorCount, cfg.Registry.ThresholdPolicy)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	_, err := load(envFrom(map[string]string{
		"CREDENTIAL_SELF_SIGNING": "forbid",
		"ENVIRONMENT":             "production",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
	assert.Contains(t, err.Error(), "ADMIN_TOKEN")
}

func TestLoad_TrustedProxies(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{
		"CREDENTIAL_SELF_SIGNING": "forbid",
		"TRUSTED_PROXIES":         "10.0.0.0/8, 192.168.1.7",
	}))
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.Equal(t, "192.168.1.7/32", cfg.TrustedProxies[1].String())

	_, err = load(envFrom(map[string]string{
		"CREDENTIAL_SELF_SIGNING": "forbid",
		"TRUSTED_PROXIES":         "proxy.internal",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}
