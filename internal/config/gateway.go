package config

// Gateway configures authentication against the hosted agent provider.
type Gateway struct {
	// UseManagedIdentity selects workload identity for provider calls.
	UseManagedIdentity bool `env:"AZURE_USE_MANAGED_IDENTITY" default:"true"`

	// ManagedIdentityClientID selects a user-assigned identity. Empty
	// uses the system-assigned one.
	ManagedIdentityClientID string `env:"AZURE_MANAGED_IDENTITY_CLIENT_ID"`

	// AllowAPIKeyFallback permits falling back to a provider API key
	// when managed identity is disabled. Never allowed in production.
	AllowAPIKeyFallback bool `env:"ALLOW_API_KEY_FALLBACK" default:"false"`

	// ProviderAPIKey is the fallback credential.
	ProviderAPIKey string `env:"AGENT_PROVIDER_API_KEY"`
}
