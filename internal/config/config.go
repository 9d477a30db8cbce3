package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	LogLevel string

	// Backend
	APIBaseURL     string
	RequestTimeout time.Duration

	// Identity provider
	FirebaseAPIKey  string
	FirebaseAuthURL string
	SessionFile     string

	// SFTP
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool
}

const DefaultRequestTimeout = 10 * time.Second

var env = newEnv()

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// Load reads .env / .env.local when present and then the process environment.
func Load() Config {
	_ = godotenv.Load(".env", ".env.local")

	return Config{
		Env:      getenv("COURSION_ENV", "development"),
		LogLevel: getenv("COURSION_LOG_LEVEL", ""),

		APIBaseURL:     strings.TrimRight(getenv("COURSION_API_URL", "http://localhost:3000"), "/"),
		RequestTimeout: getenvDuration("COURSION_REQUEST_TIMEOUT", DefaultRequestTimeout),

		FirebaseAPIKey:  getenv("FIREBASE_API_KEY", ""),
		FirebaseAuthURL: getenv("FIREBASE_AUTH_URL", "https://identitytoolkit.googleapis.com/v1"),
		SessionFile:     getenv("COURSION_SESSION_FILE", defaultSessionFile()),

		SFTPHost:                  getenv("SFTP_HOST", ""),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  getenv("SFTP_USER", ""),
		SFTPPass:                  getenv("SFTP_PASS", ""),
		SFTPDir:                   getenv("SFTP_DIR", "/inbound"),
		SFTPKnownHosts:            getenv("SFTP_KNOWN_HOSTS", ""),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", true),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".coursion-session.json"
	}
	return filepath.Join(dir, "coursion", "session.json")
}

func getenv(k, def string) string {
	v := strings.TrimSpace(env.GetString(k))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(getenv(k, ""))
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go durations ("5s") or plain seconds ("5").
func getenvDuration(k string, def time.Duration) time.Duration {
	s := getenv(k, "")
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
