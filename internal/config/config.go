package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// StorageLocal keeps blobs under UploadDir on the local filesystem.
	StorageLocal = "local"
	// StorageS3 keeps blobs in an S3 compatible bucket.
	StorageS3 = "s3"

	// DefaultRoutePassword guards the admin area when ROUTE_PASSWORD is unset.
	DefaultRoutePassword = "hacker"
)

// AppConfig collects the settings needed to run the service.
type AppConfig struct {
	ListenAddr     string
	Port           string
	DatabasePath   string
	SessionSecret  string
	GinMode        string
	RoutePassword  string
	LogDevelopment bool

	StorageBackend string
	UploadDir      string
	MediaURLPath   string
	MaxUploadBytes int64

	S3 S3Config

	RedisURL     string
	RedisChannel string

	ContactRatePerMinute int
}

// S3Config describes the bucket used when StorageBackend is "s3".
type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Load reads the configuration from .env and the environment, filling in
// defaults for anything missing.
func Load() AppConfig {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "eventify.db")
	v.SetDefault("SESSION_SECRET", "eventify-dev-secret")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("ROUTE_PASSWORD", DefaultRoutePassword)
	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("UPLOAD_DIR", "data/uploads")
	v.SetDefault("MEDIA_URL_PATH", "/media")
	v.SetDefault("MAX_UPLOAD_BYTES", int64(200<<20))
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("REDIS_CHANNEL", "eventify:changes")
	v.SetDefault("CONTACT_RATE_PER_MINUTE", 6)
	v.SetDefault("LOG_DEVELOPMENT", false)

	// Keys without defaults still need binding so AutomaticEnv resolves them
	// through Get and Unmarshal.
	for _, key := range []string{
		"LISTEN_ADDR", "S3_ENDPOINT", "S3_BUCKET",
		"S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_FORCE_PATH_STYLE", "REDIS_URL",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

func fromViper(v *viper.Viper) AppConfig {
	port := strings.TrimSpace(v.GetString("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(v.GetString("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND")))
	if backend != StorageS3 {
		backend = StorageLocal
	}

	mediaURLPath := "/" + strings.Trim(strings.TrimSpace(v.GetString("MEDIA_URL_PATH")), "/")
	if mediaURLPath == "/" {
		mediaURLPath = "/media"
	}

	maxUpload := v.GetInt64("MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 200 << 20
	}

	routePassword := v.GetString("ROUTE_PASSWORD")
	if strings.TrimSpace(routePassword) == "" {
		routePassword = DefaultRoutePassword
	}

	ratePerMinute := v.GetInt("CONTACT_RATE_PER_MINUTE")
	if ratePerMinute <= 0 {
		ratePerMinute = 6
	}

	return AppConfig{
		ListenAddr:     listenAddr,
		Port:           port,
		DatabasePath:   strings.TrimSpace(v.GetString("DATABASE_PATH")),
		SessionSecret:  strings.TrimSpace(v.GetString("SESSION_SECRET")),
		GinMode:        strings.TrimSpace(v.GetString("GIN_MODE")),
		RoutePassword:  routePassword,
		LogDevelopment: v.GetBool("LOG_DEVELOPMENT"),
		StorageBackend: backend,
		UploadDir:      strings.TrimSpace(v.GetString("UPLOAD_DIR")),
		MediaURLPath:   mediaURLPath,
		MaxUploadBytes: maxUpload,
		S3: S3Config{
			Endpoint:       strings.TrimSpace(v.GetString("S3_ENDPOINT")),
			Region:         strings.TrimSpace(v.GetString("S3_REGION")),
			Bucket:         strings.TrimSpace(v.GetString("S3_BUCKET")),
			AccessKey:      strings.TrimSpace(v.GetString("S3_ACCESS_KEY")),
			SecretKey:      strings.TrimSpace(v.GetString("S3_SECRET_KEY")),
			ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
		},
		RedisURL:             strings.TrimSpace(v.GetString("REDIS_URL")),
		RedisChannel:         strings.TrimSpace(v.GetString("REDIS_CHANNEL")),
		ContactRatePerMinute: ratePerMinute,
	}
}
