package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Store     Store     `envPrefix:"STORE_"`
		Coverage  Coverage  `envPrefix:"COVERAGE_"`
		Loader    Loader    `envPrefix:"LOADER_"`
		Render    Render    `envPrefix:"RENDER_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Scheduler Scheduler `envPrefix:"SCHEDULER_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"mars-relief"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`
		Environment    string `env:"ENVIRONMENT" envDefault:"local"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	}

	// Store selects and configures the DEM tile source backend.
	Store struct {
		Backend       string `env:"BACKEND" envDefault:"sqlite"`
		SQLitePath    string `env:"SQLITE_PATH" envDefault:"dem_tiles.db"`
		RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		BadgerDir     string `env:"BADGER_DIR" envDefault:"dem_badger"`
		FilesystemDir string `env:"FILESYSTEM_DIR" envDefault:"dem_tiles"`
	}

	Coverage struct {
		// Path to a GeoJSON footprint of the DEM dataset. Empty means
		// no coverage filtering (every bbox is considered covered).
		Path string `env:"PATH"`
	}

	Loader struct {
		CacheSize int           `env:"CACHE_SIZE" envDefault:"32"`
		CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	}

	Render struct {
		Backend        string        `env:"BACKEND" envDefault:"software"`
		PoolSize       int           `env:"POOL_SIZE" envDefault:"4"`
		AcquireTimeout time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"10s"`
		// Strides are the LOD strides jobs may select from, coarsest last.
		Strides      []int `env:"STRIDES" envDefault:"1,2,4,8,16" envSeparator:","`
		MaxOutputDim int   `env:"MAX_OUTPUT_DIM" envDefault:"2048"`
	}

	Cache struct {
		Capacity int `env:"CAPACITY" envDefault:"256"`
	}

	Scheduler struct {
		MaxActive  int `env:"MAX_ACTIVE" envDefault:"8"`
		QueueDepth int `env:"QUEUE_DEPTH" envDefault:"64"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
