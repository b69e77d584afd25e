package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultMailSendTimeout    = 15 * time.Second

	// EnvProduction switches cookies to Secure.
	EnvProduction = "production"

	defaultAccessTokenTTL    = 15 * time.Minute
	defaultRefreshTokenTTL   = 7 * 24 * time.Hour
	defaultResetTokenTTL     = 10 * time.Minute
	MinRefreshTokenBytes     = 40
	defaultBcryptCost        = 10
	defaultArgon2Time        = 3
	defaultArgon2MemoryKiB   = 64 * 1024
	defaultArgon2Threads     = 4
	defaultArgon2KeyLength   = 32
	defaultArgon2SaltLength  = 16
	defaultMetricsPath       = "/metrics"
	defaultRateLimitCapacity = 10
	defaultRateLimitInterval = time.Minute
	defaultRateLimitTTL      = 10 * time.Minute
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed. Empty means the
		// client IP is always the TCP peer.
		TrustedProxies []string `json:"trustedProxies" yaml:"trustedProxies"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Migration *MigrationConfig `json:"migration" yaml:"migration"`

	SecretKey SecretKeyConfig `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Cookie *CookieConfig `json:"cookie" yaml:"cookie"`

	Mail *MailConfig `json:"mail" yaml:"mail"`

	OAuth *OAuthConfig `json:"oauth" yaml:"oauth"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`

	// Events configures where auth events (registered, logged in, social login) are published.
	Events *EventsConfig `json:"events" yaml:"events"`
}

// SecretKeyConfig holds the signing secrets.
type SecretKeyConfig struct {
	Access string `json:"access" yaml:"access"`
	// Cookie signs the accessToken/refreshToken cookies.
	Cookie string `json:"cookie" yaml:"cookie"`
}

// MigrationConfig controls the embedded SQL migrations.
type MigrationConfig struct {
	Auto bool `json:"auto" yaml:"auto"`
	// DatabaseURL overrides the URL built from the postgres section, e.g. postgres://u:p@host:5432/db?sslmode=disable
	DatabaseURL string `json:"databaseUrl" yaml:"databaseUrl"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	AccessTokenTTL    time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL   time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`
	ResetTokenTTL     time.Duration `json:"resetTokenTTL" yaml:"resetTokenTTL"`
	RefreshTokenBytes int           `json:"refreshTokenBytes" yaml:"refreshTokenBytes"`
	BcryptCost        int           `json:"bcryptCost" yaml:"bcryptCost"`
	Argon2            Argon2Config  `json:"argon2" yaml:"argon2"`
	// ExposeDebugTokens echoes verification and reset tokens in responses. Development only.
	ExposeDebugTokens bool `json:"exposeDebugTokens" yaml:"exposeDebugTokens"`
}

// Argon2Config holds the argon2id cost parameters for newly written hashes.
type Argon2Config struct {
	Time       uint32 `json:"time" yaml:"time"`
	MemoryKiB  uint32 `json:"memoryKiB" yaml:"memoryKiB"`
	Threads    uint8  `json:"threads" yaml:"threads"`
	KeyLength  uint32 `json:"keyLength" yaml:"keyLength"`
	SaltLength uint32 `json:"saltLength" yaml:"saltLength"`
}

// CookieConfig defines auth cookie attributes that vary per deployment.
type CookieConfig struct {
	Domain string `json:"domain" yaml:"domain"`
}

// MailConfig defines the SMTP relay used for verification and reset mails.
type MailConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
	// Origin is the frontend base URL used to build verification and reset links.
	Origin string `json:"origin" yaml:"origin"`
	// SendTimeout bounds one relay conversation. Defaults to 15s.
	SendTimeout time.Duration `json:"sendTimeout" yaml:"sendTimeout"`
}

// OAuthConfig holds one entry per identity provider. Providers without a client ID are disabled.
type OAuthConfig struct {
	Google   *OAuthProviderConfig `json:"google" yaml:"google"`
	GitHub   *OAuthProviderConfig `json:"github" yaml:"github"`
	Facebook *OAuthProviderConfig `json:"facebook" yaml:"facebook"`
	Twitter  *OAuthProviderConfig `json:"twitter" yaml:"twitter"`
}

// OAuthProviderConfig defines the client registration of a single provider.
type OAuthProviderConfig struct {
	ClientID     string   `json:"clientId" yaml:"clientId"`
	ClientSecret string   `json:"clientSecret" yaml:"clientSecret"`
	RedirectURL  string   `json:"redirectUrl" yaml:"redirectUrl"`
	Scopes       []string `json:"scopes" yaml:"scopes"`
}

// Enabled reports whether the provider has a client registration.
func (c *OAuthProviderConfig) Enabled() bool {
	return c != nil && c.ClientID != ""
}

// RedisConfig defines the redis connection used by the rate limiter.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// RateLimitConfig configures the token bucket guarding credential endpoints.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Backend is "redis" or "memory".
	Backend        string        `json:"backend" yaml:"backend"`
	Capacity       int           `json:"capacity" yaml:"capacity"`
	RefillTokens   int           `json:"refillTokens" yaml:"refillTokens"`
	RefillInterval time.Duration `json:"refillInterval" yaml:"refillInterval"`
	TTL            time.Duration `json:"ttl" yaml:"ttl"`
}

// MetricsConfig defines the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// EventsConfig defines auth event publishing
type EventsConfig struct {
	// Provider type: "local", "amqp" or "google". Empty disables publishing.
	Provider string `json:"provider" yaml:"provider"`

	// AMQP broker URL and exchange (for amqp provider)
	AMQPURL  string `json:"amqpUrl" yaml:"amqpUrl"`
	Exchange string `json:"exchange" yaml:"exchange"`

	// Google Cloud project and topic (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`
	TopicID   string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env.Env, EnvProduction)
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	configFile, found := findConfigFile(searchPaths, currEnv)
	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// AUTH_ACCESSTOKENTTL -> auth.accessTokenTTL, aligned with the YAML keys.
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func findConfigFile(searchPaths []string, currEnv string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

// New loads the process-wide configuration. The returned value is treated as read-only.
func New() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env failed")
	}

	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	c.Auth.applyDefaults()

	if c.Cookie == nil {
		c.Cookie = &CookieConfig{}
	}
	if c.OAuth == nil {
		c.OAuth = &OAuthConfig{}
	}
	if c.Migration == nil {
		c.Migration = &MigrationConfig{}
	}
	if c.Mail == nil {
		c.Mail = &MailConfig{}
	}
	if c.Mail.SendTimeout <= 0 {
		c.Mail.SendTimeout = defaultMailSendTimeout
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}

	if c.RateLimit == nil {
		c.RateLimit = &RateLimitConfig{}
	}
	c.RateLimit.applyDefaults()
}

func (a *AuthConfig) applyDefaults() {
	if a.AccessTokenTTL <= 0 {
		a.AccessTokenTTL = defaultAccessTokenTTL
	}
	if a.RefreshTokenTTL <= 0 {
		a.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if a.ResetTokenTTL <= 0 {
		a.ResetTokenTTL = defaultResetTokenTTL
	}
	if a.RefreshTokenBytes < MinRefreshTokenBytes {
		a.RefreshTokenBytes = MinRefreshTokenBytes
	}
	if a.BcryptCost <= 0 {
		a.BcryptCost = defaultBcryptCost
	}
	if a.Argon2.Time == 0 {
		a.Argon2.Time = defaultArgon2Time
	}
	if a.Argon2.MemoryKiB == 0 {
		a.Argon2.MemoryKiB = defaultArgon2MemoryKiB
	}
	if a.Argon2.Threads == 0 {
		a.Argon2.Threads = defaultArgon2Threads
	}
	if a.Argon2.KeyLength == 0 {
		a.Argon2.KeyLength = defaultArgon2KeyLength
	}
	if a.Argon2.SaltLength == 0 {
		a.Argon2.SaltLength = defaultArgon2SaltLength
	}
}

func (r *RateLimitConfig) applyDefaults() {
	if r.Backend == "" {
		r.Backend = "memory"
	}
	if r.Capacity <= 0 {
		r.Capacity = defaultRateLimitCapacity
	}
	if r.RefillTokens <= 0 {
		r.RefillTokens = r.Capacity
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = defaultRateLimitInterval
	}
	if r.TTL <= 0 {
		r.TTL = defaultRateLimitTTL
	}
}

func (c *Config) validate() error {
	if c.SecretKey.Access == "" {
		return errors.New("secretKey.access must be provided")
	}
	if c.SecretKey.Cookie == "" {
		return errors.New("secretKey.cookie must be provided")
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return err
	}
	// Sessions are read back inside the request that wrote them; a replica router would serve stale rows.
	if c.Postgres != nil && len(c.Postgres.Replicas) > 0 {
		return errors.New("postgres.replicas is not supported, every query runs on the primary")
	}

	return nil
}

// TrustedProxyRanges parses http.trustedProxies. A bare IP is a single host range.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(c.HTTP.TrustedProxies))
	for _, raw := range c.HTTP.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if ip := net.ParseIP(raw); ip != nil {
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})

			continue
		}

		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "http.trustedProxies: invalid entry %q", raw)
		}
		ranges = append(ranges, ipNet)
	}

	return ranges, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
