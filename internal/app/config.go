package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// StorageDriver выбирает реализацию хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// EventsDriver выбирает брокер для событий заказов.
type EventsDriver string

const (
	EventsDriverNone     EventsDriver = "none"
	EventsDriverKafka    EventsDriver = "kafka"
	EventsDriverRabbitMQ EventsDriver = "rabbitmq"
)

// Config описывает настройки запуска приложения. Списки хранятся строками через запятую,
// чтобы конфиг оставался сравнимым значением.
type Config struct {
	HTTPAddr    string `yaml:"http_addr" validate:"required"`
	MetricsAddr string `yaml:"metrics_addr"`
	// При пустом GRPCAddr gRPC health-сервер не поднимается.
	GRPCAddr string `yaml:"grpc_addr"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`

	StorageDriver       StorageDriver `yaml:"storage_driver" validate:"oneof=memory postgres"`
	PostgresDSN         string        `yaml:"postgres_dsn" validate:"required_if=StorageDriver postgres"`
	PostgresAutoMigrate bool          `yaml:"postgres_auto_migrate"`
	PostgresMaxConns    int           `yaml:"postgres_max_conns" validate:"gte=1"`

	// При пустом ERPURL заказы в ERP не пересылаются.
	ERPURL            string        `yaml:"erp_url" validate:"omitempty,http_url"`
	ERPTimeout        time.Duration `yaml:"erp_timeout" validate:"gte=0s"`
	ERPCircuitBreaker bool          `yaml:"erp_circuit_breaker"`

	EventsDriver     EventsDriver `yaml:"events_driver" validate:"oneof=none kafka rabbitmq"`
	KafkaBrokers     string       `yaml:"kafka_brokers" validate:"required_if=EventsDriver kafka"`
	KafkaTopic       string       `yaml:"kafka_topic"`
	RabbitMQURL      string       `yaml:"rabbitmq_url" validate:"required_if=EventsDriver rabbitmq"`
	RabbitMQExchange string       `yaml:"rabbitmq_exchange"`

	CORSAllowOrigins string        `yaml:"cors_allow_origins"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" validate:"gt=0s"`
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		GRPCAddr:            ":50051",
		LogLevel:            "info",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		PostgresMaxConns:    20,
		EventsDriver:        EventsDriverNone,
		ShutdownTimeout:     5 * time.Second,
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет конфиг по тегам validate.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (%s)", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// LoadConfigFile накладывает YAML-файл поверх base. Поля, которых нет в файле, сохраняются.
func LoadConfigFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SplitList разбирает список через запятую, отбрасывая пустые элементы.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
