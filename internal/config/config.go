package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// The service runs in EKS with DB connection variables, AWS config and the queue URLs
// set as environment variables on the pod. A local .env file is loaded first when present.

type Config struct {
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBUser            string `mapstructure:"DB_USER"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBName            string `mapstructure:"DB_NAME"`
	DBMigrate         bool   `mapstructure:"DB_MIGRATE"`
	StorageDriver     string `mapstructure:"STORAGE_DRIVER"`
	ServerPort        string `mapstructure:"SERVER_PORT"`
	AWSRegion         string `mapstructure:"AWS_REGION"`
	AWSEndpoint       string `mapstructure:"AWS_ENDPOINT"`
	IsLocalDev        bool   `mapstructure:"IS_LOCAL_DEV"`
	PayrollQueueURL   string `mapstructure:"PAYROLL_SQS_QUEUE_URL"`
	EmailQueueURL     string `mapstructure:"EMAIL_SQS_QUEUE_URL"`
	PayrollAPIURL     string `mapstructure:"PAYROLL_API_URL"`
	OwnerEmail        string `mapstructure:"OWNER_EMAIL"`
	EmailSender       string `mapstructure:"EMAIL_SENDER"`
	OTelEndpoint      string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	WorkerConcurrency int    `mapstructure:"WORKER_CONCURRENCY"`
	Location          string `mapstructure:"LOCATION"`
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// LoadConfig reads configuration from an optional .env file and environment variables.
func LoadConfig() (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("DB_HOST", "db")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "timesheet_db")
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	v.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	v.SetDefault("IS_LOCAL_DEV", false)
	v.SetDefault("PAYROLL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/payroll-queue")
	v.SetDefault("EMAIL_SQS_QUEUE_URL", "http://localstack:4566/000000000000/email-queue")
	v.SetDefault("PAYROLL_API_URL", "http://localhost:8081/")
	v.SetDefault("OWNER_EMAIL", "owner@example.com")
	v.SetDefault("EMAIL_SENDER", "payroll@example.com")
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "")
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("LOCATION", "UTC")

	// Read in environment variables that match the keys.
	v.AutomaticEnv()

	err = v.Unmarshal(&config)
	return
}

// TimeLocation resolves LOCATION, the single locale "today" and paid timestamps are taken in.
func (c Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Location)
}
