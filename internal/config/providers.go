package config

import (
	"arvo/internal/providers/sumsub"
	"arvo/internal/providers/truid"
)

// Providers bundles the external verification vendor configs. It is built
// once at startup and injected into the clients so credentials never live
// in package-level state and can be swapped in tests.
type Providers struct {
	Sumsub sumsub.Config
	TruID  truid.Config
}

// LoadProviders reads the vendor credentials from the environment.
// Missing credentials are not fatal here; the clients refuse to make
// network calls until they are configured.
func LoadProviders() Providers {
	return Providers{
		Sumsub: sumsub.Config{
			AppToken:  GetEnv("SUMSUB_APP_TOKEN", ""),
			SecretKey: GetEnv("SUMSUB_SECRET_KEY", ""),
			BaseURL:   GetEnv("SUMSUB_BASE_URL", sumsub.DefaultBaseURL),
			LevelName: GetEnv("SUMSUB_LEVEL_NAME", sumsub.DefaultLevelName),
		},
		TruID: truid.Config{
			APIKey:  GetEnv("TRUID_API_KEY", ""),
			BaseURL: GetEnv("TRUID_BASE_URL", ""),
		},
	}
}
