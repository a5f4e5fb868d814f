// Package config provides configuration loading and management for the catalog service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog/internal/telemetry"
)

const (
	// StorageTypeFile stores record sets as files in a local directory
	StorageTypeFile = "file"

	// StorageTypeMemory keeps record sets in process memory
	StorageTypeMemory = "memory"

	// StorageTypeGCS stores record sets in a Google Cloud Storage bucket
	StorageTypeGCS = "gcs"

	// StorageTypeRedis stores record sets in Redis
	StorageTypeRedis = "redis"

	// StorageTypePostgres stores record sets as rows in PostgreSQL
	StorageTypePostgres = "postgres"

	// StorageTypeS3 stores record sets in an S3 compatible bucket
	StorageTypeS3 = "s3"
)

const (
	// PipelineMarketplaces discovers plugin marketplace manifests
	PipelineMarketplaces = "marketplaces"

	// PipelineSkills discovers SKILL.md files
	PipelineSkills = "skills"
)

const (
	// DefaultQualityThreshold is the minimum popularity a repository needs
	DefaultQualityThreshold = 5

	// DefaultDataDir is where the file store keeps record sets
	DefaultDataDir = "./data"

	// DefaultServerAddress is the listen address of the serve command
	DefaultServerAddress = ":8080"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	GitHub    GitHubConfig      `yaml:"github"`
	Storage   StorageConfig     `yaml:"storage"`
	Pipelines PipelinesConfig   `yaml:"pipelines"`
	Executor  ExecutorConfig    `yaml:"executor"`
	Server    ServerConfig      `yaml:"server"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// GitHubConfig defines how the GitHub API is reached.
// The token is never read from the file; see ResolveSecrets.
type GitHubConfig struct {
	// APIURL is the REST API base URL
	APIURL string `yaml:"apiURL,omitempty"`

	// Timeout bounds a single HTTP request (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// StorageConfig selects and configures the byte store
type StorageConfig struct {
	// Type is one of file, memory, gcs, redis, postgres or s3. Defaults to file.
	Type     string                 `yaml:"type,omitempty"`
	File     *FileStorageConfig     `yaml:"file,omitempty"`
	GCS      *GCSStorageConfig      `yaml:"gcs,omitempty"`
	Redis    *RedisStorageConfig    `yaml:"redis,omitempty"`
	Postgres *PostgresStorageConfig `yaml:"postgres,omitempty"`
	S3       *S3StorageConfig       `yaml:"s3,omitempty"`
}

// FileStorageConfig configures the file store
type FileStorageConfig struct {
	// BaseDir is the directory holding the record set files
	BaseDir string `yaml:"baseDir"`
}

// GCSStorageConfig configures the bucket store
type GCSStorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix,omitempty"`
	// Endpoint targets an emulator such as fake-gcs-server
	Endpoint string `yaml:"endpoint,omitempty"`
}

// RedisStorageConfig configures the Redis store. The password is read from
// THV_CATALOG_REDIS_PASSWORD.
type RedisStorageConfig struct {
	Address   string `yaml:"address"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// PostgresStorageConfig configures the PostgreSQL store. The password is
// read from THV_CATALOG_POSTGRES_PASSWORD.
type PostgresStorageConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode,omitempty"`

	// MaxConns caps the connection pool, zero keeps the driver default
	MaxConns int32 `yaml:"maxConns,omitempty"`
}

// S3StorageConfig configures the S3 store. Credentials come from the
// default AWS chain (environment, shared config or instance role).
type S3StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`

	// Endpoint targets an S3 compatible service such as MinIO
	Endpoint     string `yaml:"endpoint,omitempty"`
	UsePathStyle bool   `yaml:"usePathStyle,omitempty"`
}

// PipelinesConfig holds the per-pipeline settings
type PipelinesConfig struct {
	Marketplaces PipelineConfig `yaml:"marketplaces"`
	Skills       PipelineConfig `yaml:"skills"`
}

// PipelineConfig configures one discovery pipeline
type PipelineConfig struct {
	// Queries are the code search query variants
	Queries []string `yaml:"queries,omitempty"`

	// QualityThreshold is the minimum popularity for a repository's files to be fetched
	QualityThreshold *int `yaml:"qualityThreshold,omitempty"`

	// ItemLimit caps how many repositories are processed, zero means no limit.
	// Every search hit of a kept repository is processed.
	ItemLimit int `yaml:"itemLimit,omitempty"`

	// SyncPolicy controls periodic runs in serve mode
	SyncPolicy *SyncPolicyConfig `yaml:"syncPolicy,omitempty"`

	// Filter limits which repositories are considered at all
	Filter *FilterConfig `yaml:"filter,omitempty"`
}

// FilterConfig holds "owner/repo" glob patterns. Exclude wins over include;
// with no include patterns every repository not excluded is kept.
type FilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// SyncPolicyConfig defines synchronization settings
type SyncPolicyConfig struct {
	Interval string `yaml:"interval"`
}

// ExecutorConfig configures batching and retries of per-item API calls
type ExecutorConfig struct {
	Popularity CallPolicy `yaml:"popularity"`
	Content    CallPolicy `yaml:"content"`
	Validation CallPolicy `yaml:"validation"`
}

// CallPolicy is the batch and retry policy of one kind of call
type CallPolicy struct {
	// Concurrency is the batch size, zero runs all items at once.
	// Unset uses the default of the call kind.
	Concurrency *int `yaml:"concurrency,omitempty"`

	// DelayBetweenBatches is slept between batches (e.g., "1s")
	DelayBetweenBatches string `yaml:"delayBetweenBatches,omitempty"`

	// MaxRetries is the number of retries on rate limiting, zero disables
	// retries. Unset uses the default of the call kind.
	MaxRetries *int `yaml:"maxRetries,omitempty"`

	// BaseDelay is the first backoff delay (e.g., "10s")
	BaseDelay string `yaml:"baseDelay,omitempty"`

	// MaxDelay caps backoff and Retry-After delays (e.g., "30s")
	MaxDelay string `yaml:"maxDelay,omitempty"`
}

// ServerConfig configures the serve command
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// NewDefaultConfig returns the configuration used when no file is given
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file when a path option is
// given, and returns defaults otherwise. The result is always validated.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults fills unset fields
func (c *Config) applyDefaults() {
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.Timeout == "" {
		c.GitHub.Timeout = "30s"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeFile
	}
	if c.Storage.Type == StorageTypeFile && c.Storage.File == nil {
		c.Storage.File = &FileStorageConfig{BaseDir: DefaultDataDir}
	}
	if pg := c.Storage.Postgres; pg != nil {
		if pg.Port == 0 {
			pg.Port = 5432
		}
		if pg.SSLMode == "" {
			pg.SSLMode = "require"
		}
	}

	if len(c.Pipelines.Marketplaces.Queries) == 0 {
		c.Pipelines.Marketplaces.Queries = []string{"filename:marketplace.json path:.claude-plugin"}
	}
	if len(c.Pipelines.Skills.Queries) == 0 {
		c.Pipelines.Skills.Queries = []string{"filename:SKILL.md path:skills", "filename:SKILL.md path:.claude/skills"}
	}
	for _, p := range []*PipelineConfig{&c.Pipelines.Marketplaces, &c.Pipelines.Skills} {
		if p.QualityThreshold == nil {
			threshold := DefaultQualityThreshold
			p.QualityThreshold = &threshold
		}
		if p.SyncPolicy == nil {
			p.SyncPolicy = &SyncPolicyConfig{Interval: "24h"}
		}
	}

	c.Executor.Popularity.setDefaults(CallPolicy{
		Concurrency:         intValue(10),
		DelayBetweenBatches: "1s",
		MaxRetries:          intValue(2),
		BaseDelay:           "10s",
		MaxDelay:            "30s",
	})
	c.Executor.Content.setDefaults(CallPolicy{
		MaxRetries: intValue(1),
		BaseDelay:  "5s",
		MaxDelay:   "30s",
	})
	c.Executor.Validation.setDefaults(CallPolicy{
		MaxRetries: intValue(1),
		BaseDelay:  "5s",
		MaxDelay:   "30s",
	})

	if c.Server.Address == "" {
		c.Server.Address = DefaultServerAddress
	}
}

func intValue(v int) *int { return &v }

// setDefaults fills fields left unset. An explicit zero count is kept.
func (p *CallPolicy) setDefaults(defaults CallPolicy) {
	if p.Concurrency == nil && defaults.Concurrency != nil {
		p.Concurrency = intValue(*defaults.Concurrency)
	}
	if p.DelayBetweenBatches == "" {
		p.DelayBetweenBatches = defaults.DelayBetweenBatches
	}
	if p.MaxRetries == nil && defaults.MaxRetries != nil {
		p.MaxRetries = intValue(*defaults.MaxRetries)
	}
	if p.BaseDelay == "" {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.MaxDelay == "" {
		p.MaxDelay = defaults.MaxDelay
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := parseDuration(c.GitHub.Timeout, "github.timeout"); err != nil {
		return err
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	pipelines := map[string]*PipelineConfig{
		PipelineMarketplaces: &c.Pipelines.Marketplaces,
		PipelineSkills:       &c.Pipelines.Skills,
	}
	for name, p := range pipelines {
		if err := p.validate(fmt.Sprintf("pipelines.%s", name)); err != nil {
			return err
		}
	}

	policies := map[string]*CallPolicy{
		"executor.popularity": &c.Executor.Popularity,
		"executor.content":    &c.Executor.Content,
		"executor.validation": &c.Executor.Validation,
	}
	for prefix, p := range policies {
		if err := p.validate(prefix); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Type {
	case StorageTypeFile:
		if s.File == nil || s.File.BaseDir == "" {
			return fmt.Errorf("storage: file.baseDir is required")
		}
	case StorageTypeMemory:
	case StorageTypeGCS:
		if s.GCS == nil || s.GCS.Bucket == "" {
			return fmt.Errorf("storage: gcs.bucket is required")
		}
	case StorageTypeRedis:
		if s.Redis == nil || s.Redis.Address == "" {
			return fmt.Errorf("storage: redis.address is required")
		}
	case StorageTypePostgres:
		if s.Postgres == nil || s.Postgres.Host == "" || s.Postgres.User == "" || s.Postgres.Database == "" {
			return fmt.Errorf("storage: postgres.host, postgres.user and postgres.database are required")
		}
	case StorageTypeS3:
		if s.S3 == nil || s.S3.Bucket == "" {
			return fmt.Errorf("storage: s3.bucket is required")
		}
	default:
		return fmt.Errorf("storage: unknown type '%s', must be one of file, memory, gcs, redis, postgres, s3", s.Type)
	}
	return nil
}

func (p *PipelineConfig) validate(prefix string) error {
	for i, q := range p.Queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%s: queries[%d] cannot be empty", prefix, i)
		}
	}
	if p.QualityThreshold != nil && *p.QualityThreshold < 0 {
		return fmt.Errorf("%s: qualityThreshold cannot be negative", prefix)
	}
	if p.ItemLimit < 0 {
		return fmt.Errorf("%s: itemLimit cannot be negative", prefix)
	}
	if p.SyncPolicy == nil || p.SyncPolicy.Interval == "" {
		return fmt.Errorf("%s: syncPolicy.interval is required", prefix)
	}
	if _, err := parseDuration(p.SyncPolicy.Interval, prefix+": syncPolicy.interval"); err != nil {
		return err
	}
	if p.Filter != nil {
		for _, pattern := range append(slices.Clone(p.Filter.Include), p.Filter.Exclude...) {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return fmt.Errorf("%s: invalid filter pattern '%s': %v", prefix, pattern, err)
			}
		}
	}
	return nil
}

func (p *CallPolicy) validate(prefix string) error {
	if p.GetConcurrency() < 0 {
		return fmt.Errorf("%s: concurrency cannot be negative", prefix)
	}
	if p.GetMaxRetries() < 0 {
		return fmt.Errorf("%s: maxRetries cannot be negative", prefix)
	}
	for field, value := range map[string]string{
		"delayBetweenBatches": p.DelayBetweenBatches,
		"baseDelay":           p.BaseDelay,
		"maxDelay":            p.MaxDelay,
	} {
		if value == "" {
			continue
		}
		if _, err := parseDuration(value, prefix+": "+field); err != nil {
			return err
		}
	}

	base, _ := time.ParseDuration(p.BaseDelay)
	maxDelay, _ := time.ParseDuration(p.MaxDelay)
	if maxDelay > 0 && base > maxDelay {
		return fmt.Errorf("%s: baseDelay must not exceed maxDelay", prefix)
	}
	return nil
}

func parseDuration(value, field string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration (e.g., '30s', '1h'): %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", field)
	}
	return d, nil
}

// GetTimeout returns the parsed HTTP timeout
func (g *GitHubConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(g.Timeout)
	return d
}

// GetQualityThreshold returns the configured threshold or the default
func (p *PipelineConfig) GetQualityThreshold() int {
	if p.QualityThreshold == nil {
		return DefaultQualityThreshold
	}
	return *p.QualityThreshold
}

// GetSyncInterval returns the parsed sync interval
func (p *PipelineConfig) GetSyncInterval() time.Duration {
	if p.SyncPolicy == nil {
		return 0
	}
	d, _ := time.ParseDuration(p.SyncPolicy.Interval)
	return d
}

// Pipeline returns the configuration of the named pipeline
func (c *Config) Pipeline(name string) (*PipelineConfig, error) {
	switch name {
	case PipelineMarketplaces:
		return &c.Pipelines.Marketplaces, nil
	case PipelineSkills:
		return &c.Pipelines.Skills, nil
	default:
		return nil, fmt.Errorf("unknown pipeline '%s', must be one of %s, %s", name, PipelineMarketplaces, PipelineSkills)
	}
}

// GetDelayBetweenBatches returns the parsed batch delay
func (p *CallPolicy) GetDelayBetweenBatches() time.Duration {
	d, _ := time.ParseDuration(p.DelayBetweenBatches)
	return d
}

// GetConcurrency returns the batch size, zero when unset
func (p *CallPolicy) GetConcurrency() int {
	if p.Concurrency == nil {
		return 0
	}
	return *p.Concurrency
}

// GetMaxRetries returns the retry count, zero when unset
func (p *CallPolicy) GetMaxRetries() int {
	if p.MaxRetries == nil {
		return 0
	}
	return *p.MaxRetries
}

// GetBaseDelay returns the parsed base backoff delay
func (p *CallPolicy) GetBaseDelay() time.Duration {
	d, _ := time.ParseDuration(p.BaseDelay)
	return d
}

// GetMaxDelay returns the parsed maximum delay
func (p *CallPolicy) GetMaxDelay() time.Duration {
	d, _ := time.ParseDuration(p.MaxDelay)
	return d
}
