package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env        string
	ServerPort string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	JWTSecret   string
	SessionTTL  time.Duration
	CookieName  string
	AdminEmails []string
	CORSOrigins string

	RedisURL     string
	RollbarToken string

	QuizTimeLimit        time.Duration
	QuizPassPercentage   float64
	CompletionPercentage float64
	ResumeThreshold      time.Duration
	CheckpointInterval   time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "academy.db")

	v.SetDefault("JWT_SECRET", "secret")
	v.SetDefault("SESSION_TTL", 72*time.Hour)
	v.SetDefault("SESSION_COOKIE", "academy_session")
	v.SetDefault("ADMIN_EMAILS", "")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ROLLBAR_TOKEN", "")

	v.SetDefault("QUIZ_TIME_LIMIT", 300*time.Second)
	v.SetDefault("QUIZ_PASS_PERCENTAGE", 70.0)
	v.SetDefault("COMPLETION_PERCENTAGE", 90.0)
	v.SetDefault("RESUME_THRESHOLD", 30*time.Second)
	v.SetDefault("CHECKPOINT_INTERVAL", 5*time.Second)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:        v.GetString("ENV"),
		ServerPort: v.GetString("SERVER_PORT"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		JWTSecret:   v.GetString("JWT_SECRET"),
		SessionTTL:  v.GetDuration("SESSION_TTL"),
		CookieName:  v.GetString("SESSION_COOKIE"),
		AdminEmails: splitList(v.GetString("ADMIN_EMAILS")),
		CORSOrigins: v.GetString("CORS_ORIGINS"),

		RedisURL:     v.GetString("REDIS_URL"),
		RollbarToken: v.GetString("ROLLBAR_TOKEN"),

		QuizTimeLimit:        v.GetDuration("QUIZ_TIME_LIMIT"),
		QuizPassPercentage:   v.GetFloat64("QUIZ_PASS_PERCENTAGE"),
		CompletionPercentage: v.GetFloat64("COMPLETION_PERCENTAGE"),
		ResumeThreshold:      v.GetDuration("RESUME_THRESHOLD"),
		CheckpointInterval:   v.GetDuration("CHECKPOINT_INTERVAL"),
	}
}

// Defaults returns the configuration without consulting the environment.
func Defaults() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	return fromViper(v)
}

// IsAdminEmail reports whether email is on the ADMIN_EMAILS allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, allowed := range c.AdminEmails {
		if allowed == email {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
