package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPPort  int
	PublicDir string

	SMTPHost   string
	SMTPPort   int
	SMTPSecure bool
	SMTPUser   string
	SMTPPass   string
	MailFrom   string
	MailDomain string
	SalesEmail string

	S3Bucket            string
	S3Region            string
	S3AccessKey         string
	S3SecretKey         string
	S3Endpoint          string
	S3ForcePathStyle    bool
	S3PublicURLTemplate string

	LogFile       string
	LogBackupDir  string
	MaxLogSize    int64
	MaxAttachSize int64
	BodyLimit     int64
	SendTimeout   int

	AdminPassword string
	AuthSecret    string
}

func Load() Config {
	return Config{
		HTTPPort:  getEnvInt("HTTP_PORT", 3000),
		PublicDir: getEnvString("PUBLIC_DIR", "public"),

		SMTPHost:   getEnvString("SMTP_HOST", ""),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPSecure: getEnvBool("SMTP_SECURE", false),
		SMTPUser:   getEnvString("SMTP_USER", ""),
		SMTPPass:   getEnvString("SMTP_PASS", ""),
		MailFrom:   getEnvString("MAIL_FROM", ""),
		MailDomain: getEnvString("MAIL_DOMAIN", "localhost"),
		SalesEmail: getEnvString("SALES_EMAIL", "sales@nki-1.co.kr"),

		S3Bucket:            getEnvString("S3_BUCKET", ""),
		S3Region:            getEnvString("S3_REGION", "us-east-1"),
		S3AccessKey:         getEnvString("S3_ACCESS_KEY", ""),
		S3SecretKey:         getEnvString("S3_SECRET_KEY", ""),
		S3Endpoint:          getEnvString("S3_ENDPOINT", ""),
		S3ForcePathStyle:    getEnvBool("S3_FORCE_PATH_STYLE", false),
		S3PublicURLTemplate: getEnvString("S3_PUBLIC_URL_TEMPLATE", ""),

		LogFile:       getEnvString("LOG_FILE", "logs/quote-logs.log"),
		LogBackupDir:  getEnvString("LOG_BACKUP_DIR", "logs/backups"),
		MaxLogSize:    getEnvInt64("MAX_LOG_SIZE_BYTES", 10<<20),
		MaxAttachSize: getEnvInt64("MAX_ATTACHMENT_BYTES", 8<<20),
		BodyLimit:     getEnvInt64("BODY_LIMIT_BYTES", 12<<20),
		SendTimeout:   getEnvInt("SEND_TIMEOUT_SECONDS", 30),

		AdminPassword: getEnvString("ADMIN_PASSWORD", ""),
		AuthSecret:    getEnvString("AUTH_SECRET", ""),
	}
}

// From returns the sender address, falling back to a no-reply address on the
// configured mail domain.
func (c Config) From() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "no-reply@" + c.MailDomain
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}
