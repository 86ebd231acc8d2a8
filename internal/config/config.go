package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DIVELOG_"

type Config struct {
	Addr     string `yaml:"addr" toml:"addr"`
	LogLevel string `yaml:"log_level" toml:"log_level"`

	DataDir    string `yaml:"data_dir" toml:"data_dir"`
	DiversFile string `yaml:"divers_file" toml:"divers_file"`
	SitesFile  string `yaml:"sites_file" toml:"sites_file"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	UsersFile  string `yaml:"users_file" toml:"users_file"`

	// StoreDriver is "file", "mysql" or "sqlite".
	StoreDriver string `yaml:"store_driver" toml:"store_driver"`
	DatabaseDSN string `yaml:"database_dsn" toml:"database_dsn"`
	Cache       bool   `yaml:"cache" toml:"cache"`

	SessionSecret string `yaml:"session_secret" toml:"session_secret"`
	SecureCookie  bool   `yaml:"secure_cookie" toml:"secure_cookie"`
	DefaultFee    string `yaml:"default_fee" toml:"default_fee"`

	AdminUsername string `yaml:"admin_username" toml:"admin_username"`
	AdminName     string `yaml:"admin_name" toml:"admin_name"`
	AdminPassword string `yaml:"admin_password" toml:"admin_password"`

	// GeneratedSecret is set when SessionSecret was empty and a random one was made.
	GeneratedSecret bool `yaml:"-" toml:"-"`
}

func Default() *Config {
	return &Config{
		Addr:        ":8080",
		LogLevel:    "info",
		DataDir:     ".",
		DiversFile:  "Duikers ANWW.xlsx",
		SitesFile:   "Duikplaatsen Zeeland.xlsx",
		LogFile:     "Duiklogboek.xlsx",
		UsersFile:   "users.csv",
		StoreDriver: "file",
		Cache:       true,
		DefaultFee:  "5.00",
		AdminName:   "Beheerder",
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML or TOML
// file, a .env file in the working directory and DIVELOG_* variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ADDR":           &cfg.Addr,
		"LOG_LEVEL":      &cfg.LogLevel,
		"DATA_DIR":       &cfg.DataDir,
		"DIVERS_FILE":    &cfg.DiversFile,
		"SITES_FILE":     &cfg.SitesFile,
		"LOG_FILE":       &cfg.LogFile,
		"USERS_FILE":     &cfg.UsersFile,
		"STORE_DRIVER":   &cfg.StoreDriver,
		"DATABASE_DSN":   &cfg.DatabaseDSN,
		"SESSION_SECRET": &cfg.SessionSecret,
		"DEFAULT_FEE":    &cfg.DefaultFee,
		"ADMIN_USERNAME": &cfg.AdminUsername,
		"ADMIN_NAME":     &cfg.AdminName,
		"ADMIN_PASSWORD": &cfg.AdminPassword,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"CACHE":         &cfg.Cache,
		"SECURE_COOKIE": &cfg.SecureCookie,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks the settings and fills in a random session secret when none is set.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "file":
	case "mysql", "sqlite":
		if c.DatabaseDSN == "" {
			return fmt.Errorf("store driver %s needs a database DSN", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if _, err := c.Fee(); err != nil {
		return err
	}

	if c.AdminUsername != "" && c.AdminPassword == "" {
		return errors.New("admin username given without admin password")
	}

	if c.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		c.SessionSecret = hex.EncodeToString(secret)
		c.GeneratedSecret = true
	}
	return nil
}

// Fee returns the default fee per dive.
func (c *Config) Fee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.ReplaceAll(c.DefaultFee, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid default fee %q: %w", c.DefaultFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("default fee %s is negative", fee)
	}
	return fee, nil
}

// Path resolves one of the data file names against DataDir.
func (c *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
