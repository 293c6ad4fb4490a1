package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Solr        SolrConfig
	Storage     StorageConfig
	PageBrowser PageBrowserConfig
	Index       IndexConfig
	Watermark   WatermarkConfig
	Exports     ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolrConfig points at the search index core.
type SolrConfig struct {
	URL     string
	Timeout time.Duration
}

// StorageConfig locates the scan image and EAD file trees on disk.
type StorageConfig struct {
	BaseDir string
}

// PageBrowserConfig drives change notifications towards the page renderer.
type PageBrowserConfig struct {
	Enabled        bool
	RefreshURL     string
	DeleteURL      string
	Username       string
	Password       string
	CoalesceWindow time.Duration
	Timeout        time.Duration
	Workers        int
	Retries        int
}

// IndexConfig tunes index pushes and full reindex runs.
type IndexConfig struct {
	ReindexBatchSize int
	CacheTTL         time.Duration
}

// WatermarkConfig overlays a mark on rendered derivatives. Derivatives
// narrower than MinWidth are left unmarked.
type WatermarkConfig struct {
	Enabled   bool
	ImagePath string
	Opacity   float64
	MinWidth  int
}

// ExportsConfig bounds search result exports.
type ExportsConfig struct {
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solr = SolrConfig{
		URL:     v.GetString("SOLR_URL"),
		Timeout: parseDuration(v.GetString("SOLR_TIMEOUT"), 30*time.Second),
	}

	cfg.Storage = StorageConfig{
		BaseDir: v.GetString("STORAGE_BASE_DIR"),
	}

	cfg.PageBrowser = PageBrowserConfig{
		Enabled:        v.GetBool("PAGEBROWSER_ENABLED"),
		RefreshURL:     v.GetString("PAGEBROWSER_REFRESH_URL"),
		DeleteURL:      v.GetString("PAGEBROWSER_DELETE_URL"),
		Username:       v.GetString("PAGEBROWSER_USERNAME"),
		Password:       v.GetString("PAGEBROWSER_PASSWORD"),
		CoalesceWindow: parseDuration(v.GetString("PAGEBROWSER_COALESCE_WINDOW"), 20*time.Second),
		Timeout:        parseDuration(v.GetString("PAGEBROWSER_TIMEOUT"), 10*time.Second),
		Workers:        v.GetInt("PAGEBROWSER_WORKERS"),
		Retries:        v.GetInt("PAGEBROWSER_RETRIES"),
	}

	cfg.Index = IndexConfig{
		ReindexBatchSize: v.GetInt("INDEX_REINDEX_BATCH_SIZE"),
		CacheTTL:         parseDuration(v.GetString("INDEX_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Watermark = WatermarkConfig{
		Enabled:   v.GetBool("WATERMARK_ENABLED"),
		ImagePath: v.GetString("WATERMARK_IMAGE_PATH"),
		Opacity:   v.GetFloat64("WATERMARK_OPACITY"),
		MinWidth:  v.GetInt("WATERMARK_MIN_WIDTH"),
	}

	cfg.Exports = ExportsConfig{
		MaxRows: v.GetInt("EXPORTS_MAX_ROWS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "scanrepo")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLR_URL", "http://localhost:8983/solr/scanrepo")
	v.SetDefault("SOLR_TIMEOUT", "30s")

	v.SetDefault("STORAGE_BASE_DIR", "./files")

	v.SetDefault("PAGEBROWSER_ENABLED", false)
	v.SetDefault("PAGEBROWSER_REFRESH_URL", "http://localhost:5000/refresh")
	v.SetDefault("PAGEBROWSER_DELETE_URL", "http://localhost:5000/delete")
	v.SetDefault("PAGEBROWSER_USERNAME", "")
	v.SetDefault("PAGEBROWSER_PASSWORD", "")
	v.SetDefault("PAGEBROWSER_COALESCE_WINDOW", "20s")
	v.SetDefault("PAGEBROWSER_TIMEOUT", "10s")
	v.SetDefault("PAGEBROWSER_WORKERS", 2)
	v.SetDefault("PAGEBROWSER_RETRIES", 3)

	v.SetDefault("INDEX_REINDEX_BATCH_SIZE", 500)
	v.SetDefault("INDEX_CACHE_TTL", "5m")

	v.SetDefault("WATERMARK_ENABLED", false)
	v.SetDefault("WATERMARK_IMAGE_PATH", "")
	v.SetDefault("WATERMARK_OPACITY", 0.4)
	v.SetDefault("WATERMARK_MIN_WIDTH", 200)

	v.SetDefault("EXPORTS_MAX_ROWS", 10000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
