package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"insights-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string
	UploadPrefix       string
	SignedURLTTL       time.Duration
	MaxUploadBytes     int64
	DatabaseURL        string
	Env                string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	JWTSecret          string
	SQSQueueURL        string
	LogLevel           string
	LogFormat          string
	SessionIdleTTL     time.Duration
	SweepSchedule      string
	RateLimitRPS       float64
	RateLimitBurst     int
	SeedInsights       bool
	// LambdaFunction is set by the Lambda runtime; non-empty means the
	// process serves Lambda invocations.
	LambdaFunction string
	DB             DBPool
}

// DBPool overrides database pool settings. Zero fields keep the defaults of
// the process profile.
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Load reads configuration from .env files and environment variables with sensible defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	// Best-effort load of local env files for dev convenience.
	if err := mergeEnvFiles(v, ".env", "cmd/.env"); err != nil {
		return Config{}, err
	}
	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	maxUpload := v.GetInt64("max_upload_bytes")
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	return Config{
		Port:               v.GetString("port"),
		CORSAllowOrigin:    splitAndTrim(v.GetString("cors_allow_origins")),
		ObjectStoreType:    normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:      v.GetString("local_store_dir"),
		AWSRegion:          v.GetString("aws_region"),
		S3Bucket:           v.GetString("s3_bucket"),
		S3Prefix:           v.GetString("s3_prefix"),
		SSEKMSKeyID:        v.GetString("sse_kms_key_id"),
		GCSBucket:          v.GetString("gcs_bucket"),
		GCSPrefix:          v.GetString("gcs_prefix"),
		GCSCredentialsFile: v.GetString("gcs_credentials_file"),
		UploadPrefix:       strings.Trim(v.GetString("upload_prefix"), "/"),
		SignedURLTTL:       v.GetDuration("signed_url_ttl"),
		MaxUploadBytes:     maxUpload,
		DatabaseURL:        dbURL,
		Env:                env,
		GoogleClientID:     v.GetString("google_client_id"),
		GoogleClientSecret: v.GetString("google_client_secret"),
		GoogleRedirectURL:  v.GetString("google_redirect_url"),
		UIRedirectURL:      v.GetString("ui_redirect_url"),
		JWTSecret:          strings.TrimSpace(v.GetString("jwt_secret")),
		SQSQueueURL:        strings.TrimSpace(v.GetString("sqs_queue_url")),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		SessionIdleTTL:     v.GetDuration("session_idle_ttl"),
		SweepSchedule:      v.GetString("sweep_schedule"),
		RateLimitRPS:       v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:     v.GetInt("rate_limit_burst"),
		SeedInsights:       v.GetBool("seed_insights"),
		LambdaFunction:     strings.TrimSpace(v.GetString("aws_lambda_function_name")),
		DB: DBPool{
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
			PingTimeout:     v.GetDuration("db_ping_timeout"),
		},
	}, nil
}

const defaultMaxUploadBytes = 10 << 20 // 10MB

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "dev")
	v.SetDefault("cors_allow_origins", "http://localhost:5173")
	v.SetDefault("object_store", "local")
	v.SetDefault("local_store_dir", "./data")
	v.SetDefault("aws_region", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("sse_kms_key_id", "")
	v.SetDefault("gcs_bucket", "")
	v.SetDefault("gcs_prefix", "")
	v.SetDefault("gcs_credentials_file", "")
	v.SetDefault("upload_prefix", "uploads/extraction")
	v.SetDefault("signed_url_ttl", 15*time.Minute)
	v.SetDefault("max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("database_url", "")
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_redirect_url", "")
	v.SetDefault("ui_redirect_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("sqs_queue_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("session_idle_ttl", 2*time.Hour)
	v.SetDefault("sweep_schedule", "@every 10m")
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("seed_insights", false)
	v.SetDefault("aws_lambda_function_name", "")
	v.SetDefault("db_max_open_conns", 0)
	v.SetDefault("db_max_idle_conns", 0)
	v.SetDefault("db_conn_max_lifetime", time.Duration(0))
	v.SetDefault("db_conn_max_idle_time", time.Duration(0))
	v.SetDefault("db_ping_timeout", time.Duration(0))
}

// OnLambda reports whether the process runs inside AWS Lambda.
func (c Config) OnLambda() bool {
	return c.LambdaFunction != ""
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs", "gs":
		return "gcs"
	default:
		return "local"
	}
}
