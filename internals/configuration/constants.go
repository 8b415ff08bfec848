package config

import "github.com/steelcageai/ti-sync/internals/helpers"

// ConfigPath is the toml configuration file path
var ConfigPath = "config"

// ConfigName is the toml configuration file name
var ConfigName = "ti-sync"

// EnvPrefix is the standard environment variable prefix
var EnvPrefix = "TISYNC"

// AllowedConfigKey list every allowed configuration key
var AllowedConfigKey = [][]helpers.ConfigKey{
	{
		{Type: helpers.StringFlag, Name: "DEBUG_MODE", DefaultValue: "false", Description: "Enable debug mode"},
		{Type: helpers.StringFlag, Name: "LOGGER_PRODUCTION", DefaultValue: "true", Description: "Enable or disable production log"},

		{Type: helpers.StringFlag, Name: "HTTP_SERVER_ENABLED", DefaultValue: "true", Description: "Enable the ops HTTP server (healthz, status, metrics)"},
		{Type: helpers.StringFlag, Name: "HTTP_SERVER_PORT", DefaultValue: "9010", Description: "Ops HTTP server port"},

		{Type: helpers.StringFlag, Name: "TENANT_ID", DefaultValue: "", Description: "Entra ID tenant identifier"},
		{Type: helpers.StringFlag, Name: "CLIENT_ID", DefaultValue: "", Description: "Entra ID application (client) identifier"},
		{Type: helpers.StringFlag, Name: "CLIENT_SECRET", DefaultValue: "", Description: "Entra ID application client secret"},
		{Type: helpers.StringFlag, Name: "WORKSPACE_ID", DefaultValue: "", Description: "Sentinel workspace identifier"},
		{Type: helpers.StringFlag, Name: "CLOUD", DefaultValue: "public", Description: "Destination cloud (public or government)"},

		{Type: helpers.StringFlag, Name: "SOURCE_BASE_URL", DefaultValue: "http://localhost:8080", Description: "Source TI feed base URL"},
		{Type: helpers.StringFlag, Name: "SOURCE_API_KEY", DefaultValue: "", Description: "Source TI feed API key"},

		{Type: helpers.StringFlag, Name: "MAX_PER_UPLOAD", DefaultValue: "100", Description: "Maximum indicators per upload request (1-100)"},
		{Type: helpers.StringFlag, Name: "BATCH_DELAY_MS", DefaultValue: "500", Description: "Delay between consecutive batch uploads (in milliseconds)"},
		{Type: helpers.StringFlag, Name: "SYNC_INTERVAL_MINUTES", DefaultValue: "120", Description: "Interval between sync cycles (in minutes)"},
		{Type: helpers.StringFlag, Name: "SYNC_RUN_ONCE", DefaultValue: "false", Description: "Run a single sync cycle and exit"},
		{Type: helpers.StringFlag, Name: "DEBUG_DRY_RUN_UPLOAD", DefaultValue: "false", Description: "Enable dry-run mode for uploads (no interaction with the destination)"},
	},
}
