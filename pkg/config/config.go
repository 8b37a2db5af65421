package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultServerURL = "http://localhost:3000"

var (
	PayloadSecret = ""
	DatabaseURI   = ""

	Port = "3000"

	// Logging
	LogLevel       = "info"
	LogDevelopment = false

	// Cache settings
	RedisAddress   = ""
	RedisPassword  = ""
	RedisDB        = 0
	ListRevalidate = 600 * time.Second

	// Media settings
	MediaDir          = "./media"
	S3Bucket          = ""
	S3Region          = "us-east-1"
	S3Endpoint        = ""
	S3AccessKeyID     = ""
	S3SecretAccessKey = ""
	S3UsePathStyle    = false

	// Forms
	ContactRateLimit = 5

	SiteConfigPath = "./site.yml"
)

var OauthConf *oauth2.Config

func Init() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found or error loading it.")
	}

	PayloadSecret = os.Getenv("PAYLOAD_SECRET")
	DatabaseURI = os.Getenv("DATABASE_URI")
	Port = getEnv("PORT", "3000")

	LogLevel = getEnv("LOG_LEVEL", "info")
	LogDevelopment = getBool("LOG_DEVELOPMENT", false)

	RedisAddress = os.Getenv("REDIS_ADDRESS")
	RedisPassword = os.Getenv("REDIS_PASSWORD")
	RedisDB = getInt("REDIS_DB", 0)
	ListRevalidate = time.Duration(getInt("LIST_REVALIDATE_SECONDS", 600)) * time.Second

	MediaDir = getEnv("MEDIA_DIR", "./media")
	S3Bucket = os.Getenv("S3_BUCKET")
	S3Region = getEnv("S3_REGION", "us-east-1")
	S3Endpoint = os.Getenv("S3_ENDPOINT")
	S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	S3UsePathStyle = getBool("S3_USE_PATH_STYLE", false)

	ContactRateLimit = getInt("CONTACT_RATE_LIMIT", 5)
	SiteConfigPath = getEnv("SITE_CONFIG", "./site.yml")

	OauthConf = nil
	if clientID := os.Getenv("GITHUB_CLIENT_ID"); clientID != "" {
		OauthConf = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
			// Empty means the callback is derived from each request's origin.
			RedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
		}
	}
}

// ServerSideURL is the canonical public origin of the site.
func ServerSideURL() string {
	if url := os.Getenv("NEXT_PUBLIC_SERVER_URL"); url != "" {
		return url
	}
	if vercel := os.Getenv("VERCEL_PROJECT_PRODUCTION_URL"); vercel != "" {
		return "https://" + vercel
	}
	return defaultServerURL
}

// ClientSideURL resolves the origin a browser used to reach us. Outside of a
// request it falls back to the deployment URLs, and may be empty.
func ClientSideURL(r *http.Request) string {
	if r != nil && r.Host != "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		return scheme + "://" + r.Host
	}
	if vercel := os.Getenv("VERCEL_PROJECT_PRODUCTION_URL"); vercel != "" {
		return "https://" + vercel
	}
	return os.Getenv("NEXT_PUBLIC_SERVER_URL")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			return val
		}
	}
	return fallback
}
