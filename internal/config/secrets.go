package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the service reads
const EnvPrefix = "THV_CATALOG"

// Secrets holds credentials that are only ever taken from the environment
type Secrets struct {
	// GitHubToken authenticates API calls
	GitHubToken string
	// TriggerSecret guards the HTTP trigger endpoint; empty disables the check
	TriggerSecret string
	// RedisPassword authenticates to the Redis store
	RedisPassword string
	// PostgresPassword authenticates to the PostgreSQL store
	PostgresPassword string
}

// NewEnvViper returns a viper instance bound to THV_CATALOG_* variables
func NewEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ResolveSecrets reads secrets from prefixed variables, falling back to the
// unprefixed names conventionally used by CI and cron platforms.
func ResolveSecrets(v *viper.Viper) Secrets {
	return Secrets{
		GitHubToken:      firstNonEmpty(v.GetString("GITHUB_TOKEN"), unprefixed(v, "GITHUB_TOKEN")),
		TriggerSecret:    firstNonEmpty(v.GetString("TRIGGER_SECRET"), unprefixed(v, "CRON_SECRET")),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		PostgresPassword: firstNonEmpty(v.GetString("POSTGRES_PASSWORD"), unprefixed(v, "PGPASSWORD")),
	}
}

// unprefixed reads an environment variable without the THV_CATALOG prefix
func unprefixed(v *viper.Viper, name string) string {
	key := "unprefixed_" + strings.ToLower(name)
	if err := v.BindEnv(key, name); err != nil {
		return ""
	}
	return v.GetString(key)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
