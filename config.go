package identity

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config groups every tunable of the identity service. Values are plain data;
// nothing here reaches for process globals, so two engines with different
// configs can coexist in one process (tests do exactly that).
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OTP      OTPConfig
	Reset    ResetConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Google   GoogleConfig
	LogLevel string
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Type string // sqlite or postgres
	DSN  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// JWTConfig carries the shared signing secret. The secret is a process-wide
// trust anchor; it is injected here and nowhere else.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	VerifiedTTL time.Duration
}

type ResetConfig struct {
	TTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMSConfig targets the MSG91 gateway used for phone OTP delivery.
type SMSConfig struct {
	AuthKey     string
	TemplateID  string
	CountryCode string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func defaultConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Type: "sqlite", DSN: "identity.db"},
		Redis:    RedisConfig{Addr: "localhost:6379", Prefix: "id"},
		JWT:      JWTConfig{TTL: 60 * time.Minute},
		OTP:      OTPConfig{Digits: 6, TTL: 5 * time.Minute, VerifiedTTL: 30 * time.Minute},
		Reset:    ResetConfig{TTL: 15 * time.Minute},
		SMS:      SMSConfig{CountryCode: "91"},
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the environment with development
// defaults. Only the JWT secret has no default; Build rejects an empty one.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_TYPE", "sqlite")
	v.SetDefault("DSN", "identity.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "id")
	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("OTP_DIGITS", 6)
	v.SetDefault("OTP_TTL_MINUTES", 5)
	v.SetDefault("OTP_VERIFIED_TTL_MINUTES", 30)
	v.SetDefault("RESET_TTL_MINUTES", 15)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMS_COUNTRY_CODE", "91")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := Config{
		Server: ServerConfig{Port: v.GetInt("PORT")},
		Database: DatabaseConfig{
			Type: v.GetString("DB_TYPE"),
			DSN:  v.GetString("DSN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    time.Duration(v.GetInt("JWT_TTL_MINUTES")) * time.Minute,
		},
		OTP: OTPConfig{
			Digits:      v.GetInt("OTP_DIGITS"),
			TTL:         time.Duration(v.GetInt("OTP_TTL_MINUTES")) * time.Minute,
			VerifiedTTL: time.Duration(v.GetInt("OTP_VERIFIED_TTL_MINUTES")) * time.Minute,
		},
		Reset: ResetConfig{
			TTL: time.Duration(v.GetInt("RESET_TTL_MINUTES")) * time.Minute,
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		SMS: SMSConfig{
			AuthKey:     v.GetString("MSG91_AUTH_KEY"),
			TemplateID:  v.GetString("MSG91_TEMPLATE_ID"),
			CountryCode: v.GetString("SMS_COUNTRY_CODE"),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  v.GetString("GOOGLE_REDIRECT_URI"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if cfg.JWT.Secret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}

	return cfg, nil
}
