// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Audio outputs.
const (
	OutputLocal = "local"
	OutputNone  = "none"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Server  ServerConfig
	Library LibraryConfig
	Player  PlayerConfig
	Auth    AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the key-value area that holds profiles.
type StorageConfig struct {
	Driver    string // badger, sqlite, redis or memory (default: badger)
	Path      string // directory for badger, file for sqlite (default: ~/ListenUp/player)
	RedisAddr string
	RedisDB   int
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name          string
	Port          string        // Server port (default: 8484)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 15s), SSE is exempt
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins   []string
	AdvertiseMDNS bool // Advertise via mDNS/Zeroconf (default: false)
}

// LibraryConfig holds the local media directory.
type LibraryConfig struct {
	Path string // empty disables the library
}

// PlayerConfig tunes playback and persistence behavior.
type PlayerConfig struct {
	Output             string // local plays through the sound card, none uses a silent clock
	SaveEvery          int    // timeupdate ticks between progress snapshots (default: 10)
	RateChoices        []float64
	SleepDurations     []int // seconds; empty admits any positive value
	TimeUpdateInterval time.Duration
}

// AuthConfig holds login throttling.
type AuthConfig struct {
	LoginAttemptsPerMinute int // 0 turns failed-PIN throttling off (default)
	LoginBurst             int
}

// LoadConfig loads configuration from the process arguments with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load parses args with the same precedence as LoadConfig.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("listenup-player", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	storageDriver := fs.String("storage", "", "Storage driver (badger, sqlite, redis, memory)")
	storagePath := fs.String("storage-path", "", "Path for badger directory or sqlite file")
	redisAddr := fs.String("redis-addr", "", "Redis address (host:port)")
	redisDB := fs.String("redis-db", "", "Redis database number")

	serverName := fs.String("server-name", "", "Name advertised for this player")
	serverPort := fs.String("port", "", "Server port (default: 8484)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins")
	advertiseMDNS := fs.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: false)")

	libraryPath := fs.String("library-path", "", "Directory with audiobook files")

	output := fs.String("output", "", "Audio output (local, none)")
	saveEvery := fs.String("save-every", "", "Progress snapshot every N timeupdates (default: 10)")
	rateChoices := fs.String("rates", "", "Comma separated playback rates")
	sleepDurations := fs.String("sleep-durations", "", "Comma separated sleep timer durations in seconds")
	timeUpdate := fs.String("timeupdate-interval", "", "Interval between timeupdate notifications (default: 250ms)")

	loginRate := fs.String("login-attempts", "", "Failed login attempts allowed per minute (default: 0, throttling off)")
	loginBurst := fs.String("login-burst", "", "Failed login burst (default: 5)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getConfigValue(*storageDriver, "STORAGE_DRIVER", DriverBadger)),
			Path:      getConfigValue(*storagePath, "STORAGE_PATH", ""),
			RedisAddr: getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
			RedisDB:   getIntConfigValue(*redisDB, "REDIS_DB", 0),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SERVER_NAME", "ListenUp Player"),
			Port:          getConfigValue(*serverPort, "SERVER_PORT", "8484"),
			CORSOrigins:   splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", false),
		},
		Library: LibraryConfig{
			Path: getConfigValue(*libraryPath, "LIBRARY_PATH", ""),
		},
		Player: PlayerConfig{
			Output:    strings.ToLower(getConfigValue(*output, "PLAYER_OUTPUT", OutputLocal)),
			SaveEvery: getIntConfigValue(*saveEvery, "PLAYER_SAVE_EVERY", 10),
		},
		Auth: AuthConfig{
			LoginAttemptsPerMinute: getIntConfigValue(*loginRate, "LOGIN_ATTEMPTS_PER_MINUTE", 0),
			LoginBurst:             getIntConfigValue(*loginBurst, "LOGIN_BURST", 5),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDuration(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDuration(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Player.TimeUpdateInterval, err = parseDuration(*timeUpdate, "PLAYER_TIMEUPDATE_INTERVAL", "250ms"); err != nil {
		return nil, fmt.Errorf("invalid timeupdate interval: %w", err)
	}

	rates := getConfigValue(*rateChoices, "PLAYER_RATES", "0.75,1,1.25,1.5,1.75,2")
	if cfg.Player.RateChoices, err = parseFloats(rates); err != nil {
		return nil, fmt.Errorf("invalid playback rates %q: %w", rates, err)
	}

	durations := getConfigValue(*sleepDurations, "PLAYER_SLEEP_DURATIONS", "900,1800,2700,3600")
	if cfg.Player.SleepDurations, err = parseInts(durations); err != nil {
		return nil, fmt.Errorf("invalid sleep durations %q: %w", durations, err)
	}

	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if cfg.Library.Path, err = expandPath(cfg.Library.Path, ""); err != nil {
		return nil, fmt.Errorf("invalid library path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the %s driver", c.Storage.Driver)
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver: %s (must be badger, sqlite, redis, or memory)", c.Storage.Driver)
	}

	if c.Player.Output != OutputLocal && c.Player.Output != OutputNone {
		return fmt.Errorf("invalid player output: %s (must be local or none)", c.Player.Output)
	}

	if c.Player.SaveEvery < 1 {
		return fmt.Errorf("save-every must be at least 1, got %d", c.Player.SaveEvery)
	}

	if c.Player.TimeUpdateInterval <= 0 {
		return errors.New("timeupdate interval must be positive")
	}

	if len(c.Player.RateChoices) == 0 {
		return errors.New("at least one playback rate is required")
	}
	for _, r := range c.Player.RateChoices {
		if r <= 0 || r > 4 {
			return fmt.Errorf("playback rate %v out of range (0, 4]", r)
		}
	}
	if !slices.Contains(c.Player.RateChoices, 1) {
		return errors.New("playback rates must include 1")
	}

	for _, d := range c.Player.SleepDurations {
		if d <= 0 {
			return fmt.Errorf("sleep duration %d must be positive", d)
		}
	}

	if c.Auth.LoginAttemptsPerMinute < 0 {
		return errors.New("login attempts per minute must not be negative")
	}
	if c.Auth.LoginAttemptsPerMinute > 0 && c.Auth.LoginBurst < 1 {
		return errors.New("login burst must be at least 1 when login throttling is on")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePath fills in a per-driver default under ~/ListenUp/player.
func (c *Config) expandStoragePath() error {
	if c.Storage.Driver != DriverBadger && c.Storage.Driver != DriverSQLite {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ListenUp", "player")
	if c.Storage.Driver == DriverSQLite {
		defaultPath = filepath.Join(defaultPath, "profiles.db")
	}

	expanded, err := expandPath(c.Storage.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func parseDuration(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blanks. "none" yields an empty list.
func splitList(s string) []string {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	parts := splitList(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars already set win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
