package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Scheduler  SchedulerConfig
	MakeUp     MakeUpConfig
	Similarity SimilarityConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify tokens issued by the auth service.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// SchedulerConfig seeds the scheduling engine configuration and its async queue.
type SchedulerConfig struct {
	Enabled              bool
	ResultTTL            time.Duration
	RequestTimeout       time.Duration
	MaxStudentsPerClass  int
	WorkingDays          []time.Weekday
	WorkingHourStart     int
	WorkingHourEnd       int
	HorizonDays          int
	Timezone             string
	DefaultLocation      string
	EnableOptimization   bool
	AlternativeSolutions int
	MaxRecommendations   int
	QueueWorkers         int
	QueueBuffer          int
	QueueRetries         int
}

// MakeUpConfig tunes make-up suggestion output.
type MakeUpConfig struct {
	MaxSuggestions    int
	MaxPerTeacher     int
	MaxPerDay         int
	WindowDays        int
	DefaultNoticeHour int
}

// SimilarityConfig controls caching of content-similarity lookups.
type SimilarityConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	hours := parseHourRange(v.GetString("SCHEDULER_WORKING_HOURS"), 9, 18)
	cfg.Scheduler = SchedulerConfig{
		Enabled:              v.GetBool("ENABLE_SCHEDULER"),
		ResultTTL:            parseDuration(v.GetString("SCHEDULER_RESULT_TTL"), 30*time.Minute),
		RequestTimeout:       parseDuration(v.GetString("SCHEDULER_REQUEST_TIMEOUT"), 10*time.Second),
		MaxStudentsPerClass:  v.GetInt("SCHEDULER_MAX_STUDENTS_PER_CLASS"),
		WorkingDays:          parseWeekdays(v.GetString("SCHEDULER_WORKING_DAYS")),
		WorkingHourStart:     hours[0],
		WorkingHourEnd:       hours[1],
		HorizonDays:          v.GetInt("SCHEDULER_HORIZON_DAYS"),
		Timezone:             v.GetString("SCHEDULER_TIMEZONE"),
		DefaultLocation:      v.GetString("SCHEDULER_DEFAULT_LOCATION"),
		EnableOptimization:   v.GetBool("SCHEDULER_ENABLE_OPTIMIZATION"),
		AlternativeSolutions: v.GetInt("SCHEDULER_ALTERNATIVES"),
		MaxRecommendations:   v.GetInt("SCHEDULER_MAX_RECOMMENDATIONS"),
		QueueWorkers:         v.GetInt("SCHEDULER_QUEUE_WORKERS"),
		QueueBuffer:          v.GetInt("SCHEDULER_QUEUE_BUFFER"),
		QueueRetries:         v.GetInt("SCHEDULER_QUEUE_RETRIES"),
	}

	cfg.MakeUp = MakeUpConfig{
		MaxSuggestions:    v.GetInt("MAKEUP_MAX_SUGGESTIONS"),
		MaxPerTeacher:     v.GetInt("MAKEUP_MAX_PER_TEACHER"),
		MaxPerDay:         v.GetInt("MAKEUP_MAX_PER_DAY"),
		WindowDays:        v.GetInt("MAKEUP_WINDOW_DAYS"),
		DefaultNoticeHour: v.GetInt("MAKEUP_DEFAULT_NOTICE_HOURS"),
	}

	cfg.Similarity = SimilarityConfig{
		CacheTTL: parseDuration(v.GetString("SIMILARITY_CACHE_TTL"), 6*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_RESULT_TTL", "30m")
	v.SetDefault("SCHEDULER_REQUEST_TIMEOUT", "10s")
	v.SetDefault("SCHEDULER_MAX_STUDENTS_PER_CLASS", 9)
	v.SetDefault("SCHEDULER_WORKING_DAYS", "MON,TUE,WED,THU,FRI")
	v.SetDefault("SCHEDULER_WORKING_HOURS", "9-18")
	v.SetDefault("SCHEDULER_HORIZON_DAYS", 14)
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULER_DEFAULT_LOCATION", "online")
	v.SetDefault("SCHEDULER_ENABLE_OPTIMIZATION", false)
	v.SetDefault("SCHEDULER_ALTERNATIVES", 3)
	v.SetDefault("SCHEDULER_MAX_RECOMMENDATIONS", 10)
	v.SetDefault("SCHEDULER_QUEUE_WORKERS", 2)
	v.SetDefault("SCHEDULER_QUEUE_BUFFER", 64)
	v.SetDefault("SCHEDULER_QUEUE_RETRIES", 1)

	v.SetDefault("MAKEUP_MAX_SUGGESTIONS", 10)
	v.SetDefault("MAKEUP_MAX_PER_TEACHER", 2)
	v.SetDefault("MAKEUP_MAX_PER_DAY", 3)
	v.SetDefault("MAKEUP_WINDOW_DAYS", 14)
	v.SetDefault("MAKEUP_DEFAULT_NOTICE_HOURS", 24)

	v.SetDefault("SIMILARITY_CACHE_TTL", "6h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

// ParseWeekday accepts three-letter or full English day names.
func ParseWeekday(raw string) (time.Weekday, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if len(key) > 3 {
		key = key[:3]
	}
	day, ok := weekdayNames[key]
	return day, ok
}

func parseWeekdays(raw string) []time.Weekday {
	var days []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, part := range splitAndTrim(raw) {
		day, ok := ParseWeekday(part)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days
}

func parseHourRange(raw string, start, end int) [2]int {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return [2]int{start, end}
	}
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return [2]int{start, end}
	}
	to, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || to <= from || from < 0 || to > 24 {
		return [2]int{start, end}
	}
	return [2]int{from, to}
}
