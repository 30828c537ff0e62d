package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultDatabase   = "paymentdb"
	DefaultPort       = "8000"
	DefaultImportFile = "../payment_information.csv"
)

var ErrMissingMongoURI = errors.New("MONGOURI environment variable not set")

type Config struct {
	MongoURI      string
	Database      string
	Port          string
	ImportFile    string
	ImportOnStart bool
}

// Load reads the configuration from the environment after loading the
// optional env file. A missing env file is only logged.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("Warning: Error loading %s: %s", envFile, err)
		}
	}

	importOnStart := true
	if v := os.Getenv("IMPORT_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IMPORT_ON_START %q: %w", v, err)
		}
		importOnStart = b
	}

	return &Config{
		MongoURI:      os.Getenv("MONGOURI"),
		Database:      getEnv("MONGO_DATABASE", DefaultDatabase),
		Port:          getEnv("PORT", DefaultPort),
		ImportFile:    getEnv("IMPORT_FILE", DefaultImportFile),
		ImportOnStart: importOnStart,
	}, nil
}

// Validate checks the settings every command that talks to MongoDB needs.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return ErrMissingMongoURI
	}
	return nil
}

func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
