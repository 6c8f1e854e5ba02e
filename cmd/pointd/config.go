package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/pointd/internal/logger"
	"github.com/nkiryanov/pointd/internal/service/locker"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultLockBackend  = locker.BackendLocal
	defaultRedisAddr    = "localhost:6379"
	defaultLockExpiry   = locker.DefaultRedisExpiry
)

// Store calls made while a user lock is held: get, put, append and the restoring put
const storeCallsUnderLock = 4

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the point service will be run
	ListenAddr string

	// Database to connect to
	// If empty balances and histories are kept in memory and lost on restart
	DatabaseDSN string

	// Max random delay of every memory store call; zero disables it
	StoreLatency time.Duration

	// How charge and use of one user are serialized: local, redis or none
	LockBackend string

	// Redis server, used by 'redis' lock backend only
	RedisAddr string

	// Redis lock is dropped by redis after this time even if still held
	LockExpiry time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
		LockBackend: defaultLockBackend,
		RedisAddr:   defaultRedisAddr,
		LockExpiry:  defaultLockExpiry,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":   setString(&c.ListenAddr),
		"DATABASE_URI":  setString(&c.DatabaseDSN),
		"LOG_LEVEL":     setString(&c.LogLevel),
		"ENVIRONMENT":   setString(&c.Environment),
		"STORE_LATENCY": setDuration(&c.StoreLatency),
		"LOCK_BACKEND":  setString(&c.LockBackend),
		"REDIS_ADDRESS": setString(&c.RedisAddr),
		"LOCK_EXPIRY":   setDuration(&c.LockExpiry),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("pointd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string, memory store if empty")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVarP(&c.StoreLatency, "store-latency", "t", c.StoreLatency, "Max random delay of memory store calls")
	fs.StringVarP(&c.LockBackend, "lock", "k", c.LockBackend, "Lock backend (local, redis, none)")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for redis lock backend")
	fs.DurationVarP(&c.LockExpiry, "lock-expiry", "x", c.LockExpiry, "Expiry of redis lock")

	return fs.Parse(args)
}

// Validate checks options that can't be checked while parsing
func (c *Config) Validate() error {
	backend, err := locker.ParseBackend(c.LockBackend)
	if err != nil {
		return err
	}
	c.LockBackend = backend

	if c.StoreLatency < 0 {
		return fmt.Errorf("store latency must not be negative, got %s", c.StoreLatency)
	}

	if c.LockBackend == locker.BackendRedis {
		worst := storeCallsUnderLock * c.StoreLatency
		if c.LockExpiry <= worst {
			return fmt.Errorf("lock expiry %s must be longer than %s (worst store time under lock)", c.LockExpiry, worst)
		}
	}

	return nil
}
