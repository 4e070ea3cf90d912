package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"activity-events/domain"
)

const (
	BackendTables = "tables"
	BackendRedis  = "redis"
)

// Storage selects and addresses the view store.
type Storage struct {
	Backend          string `env:"VIEW_STORE_BACKEND" envDefault:"tables"`
	ConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	CorrelationTable string `env:"EVENTS_BY_CORRELATION_ID_TABLE" envDefault:"EventsByCorrelationId"`
	ReferenceTable   string `env:"EVENTS_BY_REFERENCE_TABLE" envDefault:"EventsByReference"`
	RedisConnection  string `env:"REDIS_CONNECTION_STRING"`
	RedisPrefix      string `env:"REDIS_KEY_PREFIX"`
	YearTimezone     string `env:"EVENT_YEAR_TIMEZONE"`
	Debug            bool   `env:"DEBUG"`
}

// Ingester configures the queue consumer.
type Ingester struct {
	Storage
	Queue           string        `env:"ACTIVITY_EVENTS_QUEUE" envDefault:"activity-events"`
	Channel         string        `env:"EVENTS_CHANNEL" envDefault:"activity-events"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	Visibility      time.Duration `env:"VISIBILITY_TIMEOUT" envDefault:"60s"`
	WriteMaxElapsed time.Duration `env:"WRITE_MAX_ELAPSED" envDefault:"30s"`
}

// QueryAPI configures the read API.
type QueryAPI struct {
	Storage
	ListenAddr    string        `env:"LISTEN_ADDR" envDefault:":8080"`
	FunctionsPort string        `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`
	AuthMode      string        `env:"AUTH_MODE" envDefault:"jwks"`
	Auth0Domain   string        `env:"AUTH0_DOMAIN"`
	Auth0Audience string        `env:"AUTH0_AUDIENCE"`
	SharedSecret  string        `env:"LOCAL_AUTH_SHARED_SECRET"`
	JWKSCacheTTL  time.Duration `env:"JWKS_CACHE_TTL" envDefault:"1h"`
	DefaultLimit  int           `env:"QUERY_DEFAULT_LIMIT" envDefault:"100"`
	Channel       string        `env:"EVENTS_CHANNEL" envDefault:"activity-events"`
	StreamBuffer  int           `env:"STREAM_BUFFER" envDefault:"16"`
}

// Validate checks that the selected backend has what it needs.
func (s Storage) Validate() error {
	switch s.Backend {
	case BackendTables:
		if s.ConnectionString == "" {
			return fmt.Errorf("missing STORAGE_CONNECTION_STRING")
		}
		if s.CorrelationTable == "" || s.ReferenceTable == "" {
			return fmt.Errorf("missing table names")
		}
	case BackendRedis:
		if s.RedisConnection == "" {
			return fmt.Errorf("missing REDIS_CONNECTION_STRING")
		}
	default:
		return fmt.Errorf("unknown VIEW_STORE_BACKEND %q", s.Backend)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone the event year is derived in. Unset means the system zone.
func (s Storage) Location() (*time.Location, error) {
	if s.YearTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.YearTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_YEAR_TIMEZONE: %w", err)
	}
	return loc, nil
}

// TableNames maps each view to its Azure table.
func (s Storage) TableNames() map[string]string {
	return map[string]string{
		domain.ViewByCorrelationID: s.CorrelationTable,
		domain.ViewByReference:     s.ReferenceTable,
	}
}

// Addr is the address the query API listens on.
func (c QueryAPI) Addr() string {
	if c.FunctionsPort != "" {
		return ":" + c.FunctionsPort
	}
	return c.ListenAddr
}

// RedisOptions parses a redis:// URL or an Azure style "host:port,password=...,ssl=true" string.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("empty redis connection string")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if strings.Contains(parts[0], "://") || parts[0] == "" {
		return nil, err
	}
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
