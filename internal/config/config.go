package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	RabbitMQ     RabbitMQConfig
	MQTT         MQTTConfig
	Redis        RedisConfig
	Notification NotificationConfig
	Ingestion    IngestionConfig
	Device       DeviceConfig
	Email        EmailTemplateConfig
	Seed         SeedConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	LogLevel    string // empty picks the environment default
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret        string
	ExpiryMinutes int
	HeaderPrefix  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type RabbitMQConfig struct {
	URI               string
	ExchangeName      string
	ExchangeType      string
	Heartbeat         time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	LogsExchangeName  string
	LogsExchangeType  string
	LogsRoutingKeys   []string
	LogsRetryDelay    time.Duration
	LogsMaxRetryDelay time.Duration
}

type MQTTConfig struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	KeepAlive            int
	ConnectTimeout       int
	MaxReconnectInterval time.Duration
	UpdatesTopicFormat   string
	LogsTopic            string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	APIKeyTTL time.Duration
}

type NotificationConfig struct {
	Debug          bool
	Workers        int
	QueueSize      int
	MaxRetries     int
	PublishTimeout time.Duration
	DefaultPayload string
}

type IngestionConfig struct {
	Enabled       bool
	Workers       int
	BufferSize    int
	BatchSize     int
	BatchTimeout  time.Duration
	RetentionDays int
	CleanupSpec   string
}

// DeviceConfig is the part of the device-facing configuration payload that
// comes from deployment settings rather than from storage.
type DeviceConfig struct {
	ExternalRabbitMQURI string
	APIBaseURI          string
	SecretKey           string
}

type EmailTemplateConfig struct {
	ResetPasswordURL        string
	ResetTokenExpiryMinutes int
	TemplateDir             string
}

type SeedConfig struct {
	FirstSuperuserEmail     string
	FirstSuperuserPassword  string
	FirstSuperuserFirstName string
	FirstSuperuserLastName  string
	FirstSuperuserPhone     string
	FirstSuperuserLasrraID  string
	FirstSuperuserAddress   string
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("JWT_EXPIRE_MINUTES", 60*24*7)
	viper.SetDefault("JWT_TOKEN_PREFIX", "Token")

	viper.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	viper.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization", "X-API-KEY", "X-Request-ID"})
	viper.SetDefault("CORS_MAX_AGE", 43200) // seconds

	viper.SetDefault("RABBIT_MQ_EXCHANGE_NAME", "device_updates")
	viper.SetDefault("RABBIT_MQ_EXCHANGE_TYPE", "direct")
	viper.SetDefault("RABBIT_MQ_HEARTBEAT", 3600*time.Second)
	viper.SetDefault("RABBIT_MQ_MAX_RETRIES", 5)
	viper.SetDefault("RABBIT_MQ_RETRY_DELAY", 5*time.Second)
	viper.SetDefault("RABBIT_MQ_MAX_RETRY_DELAY", 60*time.Second)
	viper.SetDefault("LOGS_EXCHANGE_NAME", "device_logs")
	viper.SetDefault("LOGS_EXCHANGE_TYPE", "topic")
	viper.SetDefault("LOGS_ROUTING_KEYS", []string{"#"})
	viper.SetDefault("LOGS_RETRY_DELAY", 10*time.Second)
	viper.SetDefault("LOGS_MAX_RETRY_DELAY", 60*time.Second)

	viper.SetDefault("MQTT_CLIENT_ID", "device-fleet-manager")
	viper.SetDefault("MQTT_KEEP_ALIVE", 60)
	viper.SetDefault("MQTT_CONNECT_TIMEOUT", 10)
	viper.SetDefault("MQTT_MAX_RECONNECT_INTERVAL", time.Minute)
	viper.SetDefault("MQTT_UPDATES_TOPIC_FORMAT", "devices/%s/updates")
	viper.SetDefault("MQTT_LOGS_TOPIC", "devices/+/logs")

	viper.SetDefault("REDIS_API_KEY_TTL", 5*time.Minute)

	viper.SetDefault("NOTIFICATION_WORKERS", 4)
	viper.SetDefault("NOTIFICATION_QUEUE_SIZE", 1024)
	viper.SetDefault("MAX_SEND_NOTIF_ATTEMPTS", 3)
	viper.SetDefault("NOTIFICATION_PUBLISH_TIMEOUT", 10*time.Second)
	viper.SetDefault("NOTIFICATION_DEFAULT_PAYLOAD", " ")

	viper.SetDefault("INGESTION_ENABLED", true)
	viper.SetDefault("INGESTION_WORKERS", 2)
	viper.SetDefault("INGESTION_BUFFER_SIZE", 1000)
	viper.SetDefault("INGESTION_BATCH_SIZE", 100)
	viper.SetDefault("INGESTION_BATCH_TIMEOUT", 5*time.Second)
	viper.SetDefault("LOG_RETENTION_DAYS", 30)
	viper.SetDefault("CLEANUP_SCHEDULE", "@every 1h")

	viper.SetDefault("RESET_TOKEN_EXPIRE_MINUTES", 60)
	viper.SetDefault("EMAIL_TEMPLATE_DIR", "")
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			ExpiryMinutes: viper.GetInt("JWT_EXPIRE_MINUTES"),
			HeaderPrefix:  viper.GetString("JWT_TOKEN_PREFIX"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
		RabbitMQ: RabbitMQConfig{
			URI:               viper.GetString("RABBIT_MQ_URI"),
			ExchangeName:      viper.GetString("RABBIT_MQ_EXCHANGE_NAME"),
			ExchangeType:      viper.GetString("RABBIT_MQ_EXCHANGE_TYPE"),
			Heartbeat:         viper.GetDuration("RABBIT_MQ_HEARTBEAT"),
			MaxRetries:        viper.GetInt("RABBIT_MQ_MAX_RETRIES"),
			RetryDelay:        viper.GetDuration("RABBIT_MQ_RETRY_DELAY"),
			MaxRetryDelay:     viper.GetDuration("RABBIT_MQ_MAX_RETRY_DELAY"),
			LogsExchangeName:  viper.GetString("LOGS_EXCHANGE_NAME"),
			LogsExchangeType:  viper.GetString("LOGS_EXCHANGE_TYPE"),
			LogsRoutingKeys:   viper.GetStringSlice("LOGS_ROUTING_KEYS"),
			LogsRetryDelay:    viper.GetDuration("LOGS_RETRY_DELAY"),
			LogsMaxRetryDelay: viper.GetDuration("LOGS_MAX_RETRY_DELAY"),
		},
		MQTT: MQTTConfig{
			Broker:               viper.GetString("MQTT_BROKER"),
			ClientID:             viper.GetString("MQTT_CLIENT_ID"),
			Username:             viper.GetString("MQTT_USERNAME"),
			Password:             viper.GetString("MQTT_PASSWORD"),
			KeepAlive:            viper.GetInt("MQTT_KEEP_ALIVE"),
			ConnectTimeout:       viper.GetInt("MQTT_CONNECT_TIMEOUT"),
			MaxReconnectInterval: viper.GetDuration("MQTT_MAX_RECONNECT_INTERVAL"),
			UpdatesTopicFormat:   viper.GetString("MQTT_UPDATES_TOPIC_FORMAT"),
			LogsTopic:            viper.GetString("MQTT_LOGS_TOPIC"),
		},
		Redis: RedisConfig{
			Addr:      viper.GetString("REDIS_ADDR"),
			Password:  viper.GetString("REDIS_PASSWORD"),
			DB:        viper.GetInt("REDIS_DB"),
			APIKeyTTL: viper.GetDuration("REDIS_API_KEY_TTL"),
		},
		Notification: NotificationConfig{
			Debug:          viper.GetBool("NOTIFICATION_DEBUG"),
			Workers:        viper.GetInt("NOTIFICATION_WORKERS"),
			QueueSize:      viper.GetInt("NOTIFICATION_QUEUE_SIZE"),
			MaxRetries:     viper.GetInt("MAX_SEND_NOTIF_ATTEMPTS"),
			PublishTimeout: viper.GetDuration("NOTIFICATION_PUBLISH_TIMEOUT"),
			DefaultPayload: viper.GetString("NOTIFICATION_DEFAULT_PAYLOAD"),
		},
		Ingestion: IngestionConfig{
			Enabled:       viper.GetBool("INGESTION_ENABLED"),
			Workers:       viper.GetInt("INGESTION_WORKERS"),
			BufferSize:    viper.GetInt("INGESTION_BUFFER_SIZE"),
			BatchSize:     viper.GetInt("INGESTION_BATCH_SIZE"),
			BatchTimeout:  viper.GetDuration("INGESTION_BATCH_TIMEOUT"),
			RetentionDays: viper.GetInt("LOG_RETENTION_DAYS"),
			CleanupSpec:   viper.GetString("CLEANUP_SCHEDULE"),
		},
		Device: DeviceConfig{
			ExternalRabbitMQURI: viper.GetString("EXTERNAL_RABBIT_MQ_URI"),
			APIBaseURI:          viper.GetString("API_BASE_URI"),
			SecretKey:           viper.GetString("DEVICE_SECRET_KEY"),
		},
		Email: EmailTemplateConfig{
			ResetPasswordURL:        viper.GetString("RESET_PASSWORD_URL"),
			ResetTokenExpiryMinutes: viper.GetInt("RESET_TOKEN_EXPIRE_MINUTES"),
			TemplateDir:             viper.GetString("EMAIL_TEMPLATE_DIR"),
		},
		Seed: SeedConfig{
			FirstSuperuserEmail:     viper.GetString("FIRST_SUPERUSER_EMAIL"),
			FirstSuperuserPassword:  viper.GetString("FIRST_SUPERUSER_PASSWORD"),
			FirstSuperuserFirstName: viper.GetString("FIRST_SUPERUSER_FIRST_NAME"),
			FirstSuperuserLastName:  viper.GetString("FIRST_SUPERUSER_LAST_NAME"),
			FirstSuperuserPhone:     viper.GetString("FIRST_SUPERUSER_PHONE"),
			FirstSuperuserLasrraID:  viper.GetString("FIRST_SUPERUSER_LASRRA_ID"),
			FirstSuperuserAddress:   viper.GetString("FIRST_SUPERUSER_ADDRESS"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

func (c *EmailTemplateConfig) ResetTokenExpiry() time.Duration {
	return time.Duration(c.ResetTokenExpiryMinutes) * time.Minute
}
