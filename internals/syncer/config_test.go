package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		TenantID:      "tenant-123",
		ClientID:      "client-abc",
		ClientSecret:  "s3cret",
		WorkspaceID:   "workspace-1",
		Cloud:         "public",
		SourceBaseURL: "http://localhost:8080",
		SourceAPIKey:  "key-123",
		MaxPerUpload:  100,
		BatchDelay:    500 * time.Millisecond,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	missing := validConfig()
	missing.TenantID = ""
	err := missing.Validate()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TENANT_ID", cfgErr.Field)
}

func TestConfigValidateMaxPerUploadBounds(t *testing.T) {
	for _, maxPerUpload := range []int{0, -1, 101, 1000} {
		cfg := validConfig()
		cfg.MaxPerUpload = maxPerUpload
		var cfgErr *ConfigError
		require.ErrorAs(t, cfg.Validate(), &cfgErr, "maxPerUpload=%d", maxPerUpload)
		assert.Equal(t, "MAX_PER_UPLOAD", cfgErr.Field)
	}
	for _, maxPerUpload := range []int{1, 50, 100} {
		cfg := validConfig()
		cfg.MaxPerUpload = maxPerUpload
		require.NoError(t, cfg.Validate())
	}
}

func TestResolveCloud(t *testing.T) {
	public, err := ResolveCloud("public", "workspace-1")
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.com", public.Authority)
	assert.Equal(t, "https://management.azure.com/.default", public.Scope)
	assert.Contains(t, public.UploadURL, "workspace-1")
	assert.Contains(t, public.UploadURL, "azure-api.net")

	government, err := ResolveCloud("government", "workspace-1")
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.us", government.Authority)
	assert.Contains(t, government.UploadURL, "azure-api.us")
}

func TestResolveCloudUnsupported(t *testing.T) {
	_, err := ResolveCloud("china", "workspace-1")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CLOUD", cfgErr.Field)
	assert.Contains(t, cfgErr.Reason, "china")
}
