package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"massnet.org/mass-secretstore/logging"
	"massnet.org/mass-secretstore/secretstore/crypter"
)

const (
	DefaultConfigFilename  = "secretstore-config.json"
	DefaultDbDir           = "data"
	DefaultDbFilename      = "secretstore.db"
	DefaultLogDir          = "logs"
	DefaultLoggingFilename = "secretstorelog"

	defaultDbType   = "sqlite"
	defaultLogLevel = logging.InfoLevel
	defaultLogAge   = 7
	defaultNetwork  = NetworkMainnet

	// DefaultScryptN and friends are the scrypt cost parameters used to
	// derive the key protecting every secret.
	DefaultScryptN = crypter.DefaultN
	DefaultScryptR = crypter.DefaultR
	DefaultScryptP = crypter.DefaultP

	envPrefix = "SECRETSTORE"
)

var (
	SecretStoreHomeDir = btcutil.AppDataDir("secretstore", false)
	knownDbTypes       = []string{"sqlite"}

	ErrInvalidDbType   = errors.New("invalid db_type")
	ErrInvalidNetwork  = errors.New("invalid network")
	ErrInvalidScrypt   = errors.New("invalid scrypt parameters")
	ErrInvalidLogLevel = errors.New("invalid log_level")
)

type DataConfig struct {
	DbDir  string `mapstructure:"db_dir" json:"db_dir"`
	DbType string `mapstructure:"db_type" json:"db_type"`
	DbFile string `mapstructure:"db_file" json:"db_file"`
}

type LogConfig struct {
	LogDir   string `mapstructure:"log_dir" json:"log_dir"`
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogAge   uint32 `mapstructure:"log_age" json:"log_age"`
}

// CryptoConfig holds the scrypt cost used when new secrets are encrypted.
// Existing ciphertexts carry their own parameters.
type CryptoConfig struct {
	ScryptN int `mapstructure:"scrypt_n" json:"scrypt_n"`
	ScryptR int `mapstructure:"scrypt_r" json:"scrypt_r"`
	ScryptP int `mapstructure:"scrypt_p" json:"scrypt_p"`
}

// ScryptOptions returns the configured cost as crypter options.
func (c *CryptoConfig) ScryptOptions() *crypter.ScryptOptions {
	return &crypter.ScryptOptions{N: c.ScryptN, R: c.ScryptR, P: c.ScryptP}
}

type Config struct {
	Data    *DataConfig   `mapstructure:"data" json:"data"`
	Log     *LogConfig    `mapstructure:"log" json:"log"`
	Crypto  *CryptoConfig `mapstructure:"crypto" json:"crypto"`
	Network string        `mapstructure:"network" json:"network"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Data: &DataConfig{
			DbDir:  DefaultDbDir,
			DbType: defaultDbType,
			DbFile: DefaultDbFilename,
		},
		Log: &LogConfig{
			LogDir:   DefaultLogDir,
			LogLevel: defaultLogLevel,
			LogAge:   defaultLogAge,
		},
		Crypto: &CryptoConfig{
			ScryptN: DefaultScryptN,
			ScryptR: DefaultScryptR,
			ScryptP: DefaultScryptP,
		},
		Network: defaultNetwork,
	}
}

func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("data.db_dir", d.Data.DbDir)
	v.SetDefault("data.db_type", d.Data.DbType)
	v.SetDefault("data.db_file", d.Data.DbFile)
	v.SetDefault("log.log_dir", d.Log.LogDir)
	v.SetDefault("log.log_level", d.Log.LogLevel)
	v.SetDefault("log.log_age", d.Log.LogAge)
	v.SetDefault("crypto.scrypt_n", d.Crypto.ScryptN)
	v.SetDefault("crypto.scrypt_r", d.Crypto.ScryptR)
	v.SetDefault("crypto.scrypt_p", d.Crypto.ScryptP)
	v.SetDefault("network", d.Network)
}

// LoadConfig reads the config file at path, if it exists, and overlays
// SECRETSTORE_* environment variables on top of the defaults. An empty path
// loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	return CheckConfig(cfg)
}

// CheckConfig validates cfg and normalizes its paths.
func CheckConfig(cfg *Config) (*Config, error) {
	if cfg.Data == nil || cfg.Log == nil || cfg.Crypto == nil {
		return nil, errors.New("incomplete config")
	}

	// Checks for DataConfig
	if !validDbType(cfg.Data.DbType) {
		return nil, errors.Wrapf(ErrInvalidDbType, "%s", cfg.Data.DbType)
	}
	cfg.Data.DbDir = cleanAndExpandPath(cfg.Data.DbDir)
	if cfg.Data.DbFile == "" {
		cfg.Data.DbFile = DefaultDbFilename
	}

	// Checks for LogConfig
	cfg.Log.LogDir = cleanAndExpandPath(cfg.Log.LogDir)
	if !logging.ValidLevel(cfg.Log.LogLevel) {
		return nil, errors.Wrapf(ErrInvalidLogLevel, "%s", cfg.Log.LogLevel)
	}

	// Checks for CryptoConfig
	if _, err := crypter.New(cfg.Crypto.ScryptOptions()); err != nil {
		return nil, errors.Wrapf(ErrInvalidScrypt, "N=%d r=%d p=%d",
			cfg.Crypto.ScryptN, cfg.Crypto.ScryptR, cfg.Crypto.ScryptP)
	}

	if _, err := ParamsForNetwork(cfg.Network); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DbPath is the full path of the store database file.
func (cfg *Config) DbPath() string {
	return filepath.Join(cfg.Data.DbDir, cfg.Data.DbFile)
}

func (cfg *Config) String() string {
	return fmt.Sprintf("db=%s(%s) log=%s(%s) network=%s",
		cfg.DbPath(), cfg.Data.DbType, cfg.Log.LogDir, cfg.Log.LogLevel, cfg.Network)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(SecretStoreHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}
