package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderapi/internal/app"
)

const (
	envConfigFile          = "OMS_CONFIG_FILE"
	envHTTPAddr            = "OMS_HTTP_ADDR"
	envMetricsAddr         = "OMS_METRICS_ADDR"
	envGRPCAddr            = "OMS_GRPC_ADDR"
	envLogLevel            = "OMS_LOG_LEVEL"
	envStorageDriver       = "OMS_STORAGE_DRIVER"
	envPostgresDSN         = "OMS_POSTGRES_DSN"
	envPostgresAutoMigrate = "OMS_POSTGRES_AUTO_MIGRATE"
	envPostgresMaxConns    = "OMS_POSTGRES_MAX_CONNS"
	envERPURL              = "OMS_ERP_URL"
	envERPTimeout          = "OMS_ERP_TIMEOUT"
	envERPCircuitBreaker   = "OMS_ERP_CIRCUIT_BREAKER"
	envEventsDriver        = "OMS_EVENTS_DRIVER"
	envKafkaBrokers        = "OMS_KAFKA_BROKERS"
	envKafkaTopic          = "OMS_KAFKA_TOPIC"
	envRabbitMQURL         = "OMS_RABBITMQ_URL"
	envRabbitMQExchange    = "OMS_RABBITMQ_EXCHANGE"
	envCORSAllowOrigins    = "OMS_CORS_ALLOW_ORIGINS"
	envShutdownTimeout     = "OMS_SHUTDOWN_TIMEOUT"
)

type envLookup func(string) (string, bool)

// loadConfig собирает конфиг по слоям: значения по умолчанию, YAML из OMS_CONFIG_FILE,
// переменные окружения OMS_*.
func loadConfig(lookup envLookup) (app.Config, []string, error) {
	base := app.DefaultConfig()
	if path, ok := lookupTrimmed(lookup, envConfigFile); ok {
		cfg, err := app.LoadConfigFile(path, base)
		if err != nil {
			return base, nil, err
		}
		base = cfg
	}

	cfg, warnings := applyEnv(base, lookup)
	return cfg, warnings, nil
}

// applyEnv переопределяет поля cfg из окружения. Некорректные значения не применяются,
// вместо них возвращается предупреждение.
func applyEnv(cfg app.Config, lookup envLookup) (app.Config, []string) {
	var warnings []string
	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	strOverrides := []struct {
		key    string
		target *string
	}{
		{envHTTPAddr, &cfg.HTTPAddr},
		{envMetricsAddr, &cfg.MetricsAddr},
		{envPostgresDSN, &cfg.PostgresDSN},
		{envERPURL, &cfg.ERPURL},
		{envKafkaBrokers, &cfg.KafkaBrokers},
		{envKafkaTopic, &cfg.KafkaTopic},
		{envRabbitMQURL, &cfg.RabbitMQURL},
		{envRabbitMQExchange, &cfg.RabbitMQExchange},
		{envCORSAllowOrigins, &cfg.CORSAllowOrigins},
	}
	for _, o := range strOverrides {
		if v, ok := lookupTrimmed(lookup, o.key); ok {
			*o.target = v
		}
	}

	// Пустой OMS_GRPC_ADDR выключает gRPC, поэтому учитывается само наличие переменной.
	if v, ok := lookup(envGRPCAddr); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}
	if v, ok := lookupTrimmed(lookup, envLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(v))
	}
	if v, ok := lookupTrimmed(lookup, envEventsDriver); ok {
		cfg.EventsDriver = app.EventsDriver(strings.ToLower(v))
	}

	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envPostgresMaxConns); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envPostgresMaxConns, v, err)
		} else {
			cfg.PostgresMaxConns = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envERPCircuitBreaker); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envERPCircuitBreaker, v, err)
		} else {
			cfg.ERPCircuitBreaker = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envERPTimeout); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		if err != nil {
			warn(envERPTimeout, v, err)
		} else {
			cfg.ERPTimeout = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envShutdownTimeout); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envShutdownTimeout, v, err)
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func osLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", raw)
	}
}

func parseDuration(raw string, validate func(time.Duration) bool, msg string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(value) {
		return 0, fmt.Errorf("%s", msg)
	}
	return value, nil
}

func parseInt(raw string, validate func(int) bool, msg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(value) {
		return 0, fmt.Errorf("%s", msg)
	}
	return value, nil
}
