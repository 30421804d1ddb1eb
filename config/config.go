// Package config loads server settings from the environment or an optional config file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DevMode                bool
	HostPort               string
	DynamoDBEndpoint       string
	DynamoDBTable          string
	SQSEndpoint            string
	CanvasChangedQueue     string
	RedisEndpoint          string
	JWTSecret              []byte
	AllowedOrigins         []string
	SnapshotFlushInterval  time.Duration
	EnableCrossInstanceBus bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dev_mode", false)
	v.SetDefault("host_port", "8080")
	v.SetDefault("dynamodb_table", "Whiteboard")
	v.SetDefault("sqs_canvas_changed_queue", "CanvasChangedQueue")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("snapshot_flush_millis", 500)
	v.SetDefault("cross_instance_bus", true)
}

// Load reads configuration from environment variables, with an optional file
// named by CONFIG_FILE. Environment values win over the file.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	secret, err := base64.StdEncoding.DecodeString(v.GetString("jwt_secret"))
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode base64 jwt secret: %w", err)
	}
	if len(secret) == 0 {
		return Config{}, errors.New("jwt secret is required")
	}

	flushMillis := v.GetInt("snapshot_flush_millis")
	if flushMillis <= 0 {
		return Config{}, fmt.Errorf("snapshot flush interval must be positive, got %d", flushMillis)
	}

	redisEndpoint := v.GetString("redis_endpoint")
	if redisEndpoint == "" {
		return Config{}, errors.New("redis endpoint is required")
	}

	return Config{
		DevMode:                v.GetBool("dev_mode"),
		HostPort:               v.GetString("host_port"),
		DynamoDBEndpoint:       v.GetString("dynamodb_endpoint"),
		DynamoDBTable:          v.GetString("dynamodb_table"),
		SQSEndpoint:            v.GetString("sqs_endpoint"),
		CanvasChangedQueue:     v.GetString("sqs_canvas_changed_queue"),
		RedisEndpoint:          redisEndpoint,
		JWTSecret:              secret,
		AllowedOrigins:         splitList(v.GetString("allowed_origins")),
		SnapshotFlushInterval:  time.Duration(flushMillis) * time.Millisecond,
		EnableCrossInstanceBus: v.GetBool("cross_instance_bus"),
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
