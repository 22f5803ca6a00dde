package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the relay process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Twilio    TwilioConfig
	Notify    NotifyConfig
	OpenAI    OpenAIConfig
	Media     MediaConfig
	Dedupe    DedupeConfig
	Redis     RedisConfig
	DB        DBConfig
	Auth      AuthConfig
	SentryDSN string
}

type AppConfig struct {
	Env string
}

// ServerConfig describes how the relay is reached from the outside.
// Host and Port are the public values used to build asset and recording URLs.
type ServerConfig struct {
	Host       string
	Port       string
	ListenAddr string
	IsProxied  bool
	SSLEnabled bool

	TLSCertFile string
	TLSKeyFile  string
}

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	ValidateSignature bool
}

type NotifyConfig struct {
	Enabled          bool
	CallWebhook      string
	RecordingWebhook string
	Title            string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type MediaConfig struct {
	AssetsDir     string
	GreetingFile  string
	RecordingsDir string

	// RecordingDelay is the grace period between the recording callback and the download.
	RecordingDelay time.Duration
	// RecordingMaxLength is the maximum message length in seconds.
	RecordingMaxLength int
}

type DedupeConfig struct {
	Enabled bool
	TTL     time.Duration
}

// RedisConfig is optional. When Host is empty the duplicate guard stays in memory.
type RedisConfig struct {
	Host string
	Port int
}

// DBConfig is optional. When DSN is empty the call log stays in memory.
type DBConfig struct {
	// Driver accepts: pgx, sqlite
	Driver string
	DSN    string
}

// AuthConfig is optional. The admin API is only mounted when JWTSecret is set.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))

	c.Server.Host = strings.TrimSpace(os.Getenv("SERVER_HOST"))
	c.Server.Port = strings.TrimSpace(os.Getenv("SERVER_PORT"))
	c.Server.ListenAddr = strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	c.Server.IsProxied = envBool("IS_PROXIED")
	c.Server.SSLEnabled = envBool("SSL_ENABLED")
	c.Server.TLSCertFile = strings.TrimSpace(os.Getenv("TLS_CERT_FILE"))
	c.Server.TLSKeyFile = strings.TrimSpace(os.Getenv("TLS_KEY_FILE"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.ValidateSignature = envBool("TWILIO_VALIDATE_SIGNATURE")

	c.Notify.Enabled = envBool("NOTIFY_ENABLED")
	c.Notify.CallWebhook = strings.TrimSpace(os.Getenv("CALL_WEBHOOK"))
	c.Notify.RecordingWebhook = strings.TrimSpace(os.Getenv("RECORDING_WEBHOOK"))
	c.Notify.Title = strings.TrimSpace(os.Getenv("NOTIFY_TITLE"))

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	c.OpenAI.Model = strings.TrimSpace(os.Getenv("TRANSCRIBE_MODEL"))

	c.Media.AssetsDir = strings.TrimSpace(os.Getenv("ASSETS_DIR"))
	c.Media.GreetingFile = strings.TrimSpace(os.Getenv("GREETING_FILE"))
	c.Media.RecordingsDir = strings.TrimSpace(os.Getenv("RECORDINGS_DIR"))
	{
		d, err := optionalDuration("RECORDING_DELAY")
		parseErrs = appendErr(parseErrs, err)
		c.Media.RecordingDelay = d
	}
	{
		n, err := optionalInt("RECORDING_MAX_LENGTH")
		parseErrs = appendErr(parseErrs, err)
		c.Media.RecordingMaxLength = n
	}

	c.Dedupe.Enabled = envBool("DEDUPE_RECORDINGS")
	{
		d, err := optionalDuration("DEDUPE_TTL")
		parseErrs = appendErr(parseErrs, err)
		c.Dedupe.TTL = d
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		parseErrs = appendErr(parseErrs, err)
		c.Redis.Port = n
	}

	c.DB.Driver = strings.TrimSpace(os.Getenv("DB_DRIVER"))
	c.DB.DSN = os.Getenv("DB_DSN")

	{
		a, err := loadAuth()
		parseErrs = appendErr(parseErrs, err)
		c.Auth = a
	}

	c.SentryDSN = strings.TrimSpace(os.Getenv("SENTRY_DSN"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadAuth reads only the admin token settings. It is used by commands that
// mint tokens without running the relay.
func LoadAuth() (AuthConfig, error) {
	a, err := loadAuth()
	if err != nil {
		return AuthConfig{}, err
	}
	a = Config{Auth: a}.WithDefaults().Auth
	if a.JWTSecret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is required")
	}
	return a, nil
}

func loadAuth() (AuthConfig, error) {
	a := AuthConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
	}
	d, err := optionalDuration("JWT_ACCESS_TTL")
	a.AccessTokenTTL = d
	return a, err
}

// WithDefaults fills optional settings. It never overrides explicit values.
func (c Config) WithDefaults() Config {
	out := c
	if out.Server.ListenAddr == "" && out.Server.Port != "" {
		out.Server.ListenAddr = ":" + out.Server.Port
	}
	if out.Notify.Title == "" {
		out.Notify.Title = "New Hotline Message"
	}
	if out.OpenAI.Model == "" {
		out.OpenAI.Model = "whisper-1"
	}
	if out.Media.AssetsDir == "" {
		out.Media.AssetsDir = "assets"
	}
	if out.Media.GreetingFile == "" {
		out.Media.GreetingFile = "hotline-welcome.mp3"
	}
	if out.Media.RecordingsDir == "" {
		out.Media.RecordingsDir = "recordings"
	}
	if out.Media.RecordingDelay <= 0 {
		out.Media.RecordingDelay = 3 * time.Second
	}
	if out.Media.RecordingMaxLength <= 0 {
		out.Media.RecordingMaxLength = 300
	}
	if out.Dedupe.TTL <= 0 {
		out.Dedupe.TTL = 24 * time.Hour
	}
	if out.Redis.Host != "" && out.Redis.Port == 0 {
		out.Redis.Port = 6379
	}
	if out.DB.DSN != "" && out.DB.Driver == "" {
		out.DB.Driver = "pgx"
	}
	if out.Auth.AccessTokenTTL <= 0 {
		out.Auth.AccessTokenTTL = 12 * time.Hour
	}
	return out
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}

	if c.Server.Host == "" {
		errs = append(errs, errors.New("SERVER_HOST is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	} else if n, err := strconv.Atoi(c.Server.Port); err != nil || n <= 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be a valid port, got %q", c.Server.Port))
	}
	if c.ServesTLS() {
		if c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "" {
			errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE are required when SSL_ENABLED is set"))
		}
	}

	if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN must be set"))
	}

	if c.Notify.Enabled {
		if c.Notify.CallWebhook == "" {
			errs = append(errs, errors.New("CALL_WEBHOOK is required when NOTIFY_ENABLED is set"))
		}
		if c.Notify.RecordingWebhook == "" {
			errs = append(errs, errors.New("RECORDING_WEBHOOK is required when NOTIFY_ENABLED is set"))
		}
	}

	if c.DB.DSN != "" && !isValidDriver(c.DB.Driver) {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be one of pgx, sqlite, got %q", c.DB.Driver))
	}
	if c.Redis.Port < 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.IsProduction() && c.Auth.JWTSecret != "" {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
	}

	return joinErrors(errs)
}

// CheckFiles verifies the files and directories the relay needs before it serves traffic.
// The recordings directory is created if missing.
func (c Config) CheckFiles() error {
	var errs []error

	if _, err := os.Stat(c.GreetingPath()); err != nil {
		errs = append(errs, fmt.Errorf("greeting file %s: %w", c.GreetingPath(), err))
	}
	if c.ServesTLS() {
		for _, f := range []string{c.Server.TLSCertFile, c.Server.TLSKeyFile} {
			if _, err := os.Stat(f); err != nil {
				errs = append(errs, fmt.Errorf("tls file %s: %w", f, err))
			}
		}
	}
	if err := os.MkdirAll(c.Media.RecordingsDir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("recordings dir %s: %w", c.Media.RecordingsDir, err))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// ServesTLS reports whether this process terminates TLS itself.
// Behind a proxy the proxy owns TLS.
func (c Config) ServesTLS() bool {
	return c.Server.SSLEnabled && !c.Server.IsProxied
}

func (c Config) GreetingPath() string {
	return filepath.Join(c.Media.AssetsDir, c.Media.GreetingFile)
}

func (c Config) TranscriptionEnabled() bool {
	return c.OpenAI.APIKey != ""
}

func (c Config) AdminEnabled() bool {
	return c.Auth.JWTSecret != ""
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidDriver(v string) bool {
	switch v {
	case "pgx", "sqlite":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
