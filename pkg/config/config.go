package config

import (
	"time"
)

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[payflow]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Payment controls the create-then-wait workflow.
type Payment struct {
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"1s"`
	AttemptTimeout time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"20s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"2"`
	BackoffBase    time.Duration `envconfig:"BACKOFF_BASE" default:"1s"`
	BackoffMax     time.Duration `envconfig:"BACKOFF_MAX" default:"30s"`
	LookupParallel int           `envconfig:"LOOKUP_PARALLEL" default:"16"`
}

type Listener struct {
	ApprovalDelay time.Duration `envconfig:"APPROVAL_DELAY" default:"2s"`
}

type Store struct {
	Workers int           `envconfig:"WORKERS" default:"32"`
	Latency time.Duration `envconfig:"LATENCY" default:"0s"`
}

type Redis struct {
	URL    string `envconfig:"URL" default:"redis://localhost:6379/0"`
	Stream string `envconfig:"STREAM" default:"payflow.payments"`
	Group  string `envconfig:"GROUP" default:"payflow"`
}

type Kafka struct {
	Brokers string `envconfig:"BROKERS" default:"localhost:9092"`
	Topic   string `envconfig:"TOPIC" default:"payflow.payments"`
	GroupID string `envconfig:"GROUP_ID" default:"payflow"`
}

type EventBus struct {
	Driver     string `envconfig:"DRIVER" default:"memory"`
	BufferSize int    `envconfig:"BUFFER_SIZE" default:"256"`
	Redis      *Redis `envconfig:"REDIS"`
	Kafka      *Kafka `envconfig:"KAFKA"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Payment   *Payment   `envconfig:"PAYMENT"`
	Listener  *Listener  `envconfig:"LISTENER"`
	Store     *Store     `envconfig:"STORE"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
}
