package syncer

import (
	"fmt"
	"time"
)

// Indicator is an opaque threat-intelligence object. The engine never inspects
// or mutates its fields beyond counting and grouping by "type" for reporting.
type Indicator = map[string]interface{}

// Batch is a bounded, order-preserving slice of indicators sent in one upload request
type Batch []Indicator

// MaxUploadCeiling is the destination's hard per-request indicator limit
const MaxUploadCeiling = 100

// Config holds every resolved parameter of a sync process invocation.
// It is immutable once resolved; the engine never reads files or environment directly.
type Config struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	WorkspaceID   string
	Cloud         string
	SourceBaseURL string
	SourceAPIKey  string
	MaxPerUpload  int
	BatchDelay    time.Duration
	DryRun        bool
}

// ConfigError reports an invalid or missing configuration value.
// It is a startup-time fatal condition, raised before any network call.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate checks required fields and bounds. It does not resolve cloud endpoints,
// see ResolveCloud.
func (c Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"TENANT_ID", c.TenantID},
		{"CLIENT_ID", c.ClientID},
		{"CLIENT_SECRET", c.ClientSecret},
		{"WORKSPACE_ID", c.WorkspaceID},
		{"SOURCE_BASE_URL", c.SourceBaseURL},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Field: r.field, Reason: "required value is missing"}
		}
	}
	if c.MaxPerUpload < 1 || c.MaxPerUpload > MaxUploadCeiling {
		return &ConfigError{Field: "MAX_PER_UPLOAD", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxUploadCeiling, c.MaxPerUpload)}
	}
	if c.BatchDelay < 0 {
		return &ConfigError{Field: "BATCH_DELAY_MS", Reason: "must not be negative"}
	}
	return nil
}

// CloudEndpoints groups the cloud-specific destination parameters of one sync cycle
type CloudEndpoints struct {
	Authority string
	Scope     string
	UploadURL string
}

// ResolveCloud maps a cloud name to its token authority, scope and upload endpoint.
// Exactly two clouds are supported; anything else is a ConfigError.
func ResolveCloud(cloud string, workspaceID string) (CloudEndpoints, error) {
	switch cloud {
	case "public":
		return CloudEndpoints{
			Authority: "https://login.microsoftonline.com",
			Scope:     "https://management.azure.com/.default",
			UploadURL: fmt.Sprintf("https://sentinelus.azure-api.net/%s/threatintelligence:upload-indicators?api-version=2022-07-01", workspaceID),
		}, nil
	case "government":
		return CloudEndpoints{
			Authority: "https://login.microsoftonline.us",
			Scope:     "https://management.usgovcloudapi.net/.default",
			UploadURL: fmt.Sprintf("https://sentinelus.azure-api.us/%s/threatintelligence:upload-indicators?api-version=2022-07-01", workspaceID),
		}, nil
	default:
		return CloudEndpoints{}, &ConfigError{Field: "CLOUD", Reason: fmt.Sprintf("unsupported cloud %q (supported: public, government)", cloud)}
	}
}
