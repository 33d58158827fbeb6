package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    int
	PublicBaseURL string
	Database      DatabaseConfig
	Auth          AuthConfig
	QR            QRConfig
	Storage       StorageConfig
	MQ            MQConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// AuthConfig holds token signing settings. TokenTTL is how long an
// issued session token stays valid.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// QRConfig points at the external QR image service. The service renders
// a QR image for whatever URL is passed in its data query parameter.
type QRConfig struct {
	ServiceURL string
	Size       string
}

// StorageConfig selects the object storage backend for uploaded card
// images. Backend is one of "minio", "gcs" or empty to disable uploads.
type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
}

// MQConfig selects the broker for card lifecycle events. Backend is one
// of "rabbitmq", "pubsub" or empty to disable publishing.
type MQConfig struct {
	Backend  string
	Topic    string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "cardlink"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "cardlink_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:    getEnvInt("SERVER_PORT", 8080),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Database:      dbConfig,
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		},
		QR: QRConfig{
			ServiceURL: getEnv("QR_SERVICE_URL", "https://api.qrserver.com/v1/create-qr-code/"),
			Size:       getEnv("QR_SIZE", "200x200"),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", ""),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "cardlink-images"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				Bucket:          getEnv("GCS_BUCKET", "cardlink-images"),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		MQ: MQConfig{
			Backend: getEnv("MQ_BACKEND", ""),
			Topic:   getEnv("MQ_TOPIC", "card-events"),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
			},
			PubSub: PubSubConfig{
				ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
