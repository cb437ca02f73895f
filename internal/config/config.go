// Package config carga la configuración del servicio con viper:
// variables de entorno con prefijo CDP_ (CDP_DB_DSN, CDP_AUTH_JWT_SECRET, ...)
// y, si existe, un YAML indicado por CONFIG_PATH.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CDP"

type Config struct {
	Port          string `mapstructure:"port"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	// TrustProxy: la IP del cliente sale de X-Forwarded-For (solo detrás de proxy).
	TrustProxy bool `mapstructure:"trust_proxy"`

	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	// Plataforma (auth + storage comparten URL base y service key).
	Platform struct {
		URL        string        `mapstructure:"url"`
		AnonKey    string        `mapstructure:"anon_key"`
		ServiceKey string        `mapstructure:"service_key"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"platform"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Storage struct {
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"storage"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Mail struct {
		ResendAPIKey string `mapstructure:"resend_api_key"`
		From         string `mapstructure:"from"`
	} `mapstructure:"mail"`

	RateLimit struct {
		PerSecond float64 `mapstructure:"per_second"`
		Burst     int     `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("public_base_url", "")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("platform.url", "")
	v.SetDefault("platform.anon_key", "")
	v.SetDefault("platform.service_key", "")
	v.SetDefault("platform.timeout", 10*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("storage.bucket", "documentos")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mail.resend_api_key", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("ratelimit.per_second", 5.0)
	v.SetDefault("ratelimit.burst", 20)
}

// Load lee defaults, archivo opcional (CONFIG_PATH) y env.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// PORT (sin prefijo) se respeta por compatibilidad con plataformas de deploy.
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		v.Set("port", p)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	return cfg, nil
}

// Addr devuelve ":<port>" para http.Server.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
