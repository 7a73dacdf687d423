package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	Host           string `env:"HOST,default=0.0.0.0"`
	GrpcPort       int    `env:"GRPC_PORT,default=50051"`
	HttpPort       int    `env:"HTTP_PORT,default=8080"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`

	JwtSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	SubscriberBufferSize int           `env:"SUBSCRIBER_BUFFER_SIZE,default=64"`
	FanoutChunkSize      int           `env:"FANOUT_CHUNK_SIZE,default=256"`
	LockStripes          int           `env:"LOCK_STRIPES,default=256"`
	LivenessWindow       time.Duration `env:"LIVENESS_WINDOW,default=60s"`
	LimitMessages        int           `env:"LIMIT_MESSAGES,default=100"`
	DefaultPageSize      int           `env:"DEFAULT_PAGE_SIZE,default=50"`

	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	TelemetryBufferSize  int           `env:"TELEMETRY_BUFFER_SIZE,default=1024"`
	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,default=50ms"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func (c Config) HttpAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HttpPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
