package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EventsCfg struct {
	Enabled   bool
	Brokers   string
	Topic     string
	QueueSize int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr              string
	LogLevel          string
	LogConsole        bool
	LogSampleN        int
	TrendsURL         string
	TrendsGeo         string
	TrendsTZ          string
	KeywordsFile      string
	CacheBackend      string
	CacheTTL          time.Duration
	CacheMaxEntries   int
	CacheOpTimeout    time.Duration
	CacheSingleflight bool
	RedisAddr         string
	RedisNamespace    string
	RedisPoolSize     int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration
	FetchDelay        time.Duration
	FetchTimeout      time.Duration
	SourceMaxQPS      float64
	Events            EventsCfg
	Metrics           MetricsCfg
}

func FromEnv() Config {
	delay := getduration("FETCH_DELAY", 500*time.Millisecond)
	if delay < 0 {
		delay = 0
	}
	ttl := getduration("CACHE_TTL", time.Hour)
	if ttl <= 0 {
		ttl = time.Hour
	}

	return Config{
		Addr:              getenv("ADDR", ":8090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogConsole:        getbool("LOG_CONSOLE", false),
		LogSampleN:        getint("LOG_SAMPLE_N", 0),
		TrendsURL:         getenv("TRENDS_URL", "http://localhost:8081"),
		TrendsGeo:         getenv("TRENDS_GEO", "KR"),
		TrendsTZ:          getenv("TRENDS_TZ", "Asia/Seoul"),
		KeywordsFile:      getenv("KEYWORDS_FILE", ""),
		CacheBackend:      strings.ToLower(getenv("CACHE_BACKEND", "memory")),
		CacheTTL:          ttl,
		CacheMaxEntries:   getint("CACHE_MAX_ENTRIES", 0),
		CacheOpTimeout:    getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheSingleflight: getbool("CACHE_SINGLEFLIGHT", false),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		RedisNamespace:    getenv("REDIS_NAMESPACE", "tw"),
		RedisPoolSize:     getint("REDIS_POOL_SIZE", 32),
		RedisDialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		RedisReadTimeout:  getduration("REDIS_READ_TIMEOUT", time.Second),
		RedisWriteTimeout: getduration("REDIS_WRITE_TIMEOUT", time.Second),
		FetchDelay:        delay,
		FetchTimeout:      getduration("FETCH_TIMEOUT", 20*time.Second),
		SourceMaxQPS:      getfloat("SOURCE_MAX_QPS", 0),
		Events: EventsCfg{
			Enabled:   getbool("EVENTS_ENABLED", false),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     getenv("EVENTS_TOPIC", "trends-results"),
			QueueSize: getint("EVENTS_QUEUE", 1024),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// BrokerList splits a comma separated broker list.
func (e EventsCfg) BrokerList() []string {
	var out []string
	for p := range strings.SplitSeq(e.Brokers, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
