package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAddr           = "localhost:8000"
	defaultLocalType      = "buntdb"
	defaultLocalPath      = "eternal-paradise.db"
	defaultPollInterval   = 800 * time.Millisecond
	defaultRemoteTimeout  = 15 * time.Second
	defaultTokenCacheSize = 256
	envPrefix             = "EPP"
)

// Config is the global configuration object which is filled via the configuration file, the environment
// (prefix EPP_) and the command line flags.
type Config struct {
	Remote        RemoteConfig         `mapstructure:"remote"`
	Local         LocalConfig          `mapstructure:"local"`
	Server        ServerConfig         `mapstructure:"server"`
	OIDCConfigs   []OIDCConfig         `mapstructure:"oidc"`
	Announcements []AnnouncementConfig `mapstructure:"announcement"`
	LogLevel      string               `mapstructure:"log_level"`
}

// RemoteConfig holds the connection coordinates of the realtime database and its storage bucket. All of the
// web app fields are required; if any of them is missing the application runs on the local store only.
type RemoteConfig struct {
	APIKey            string `mapstructure:"api_key"`
	AuthDomain        string `mapstructure:"auth_domain"`
	DatabaseURL       string `mapstructure:"database_url"`
	ProjectID         string `mapstructure:"project_id"`
	StorageBucket     string `mapstructure:"storage_bucket"`
	MessagingSenderID string `mapstructure:"messaging_sender_id"`
	AppID             string `mapstructure:"app_id"`

	AuthToken       string        `mapstructure:"auth_token"`       // optional, sent as the auth query parameter
	CredentialsFile string        `mapstructure:"credentials_file"` // optional, service account for uploads
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LocalConfig configures the local fallback store. Type is one of "buntdb" (default), "sqlite" or "postgres".
type LocalConfig struct {
	Type         string        `mapstructure:"type"`
	Path         string        `mapstructure:"path"`
	DSN          string        `mapstructure:"dsn"`
	LockPath     string        `mapstructure:"lock_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Fingerprint  string        `mapstructure:"fingerprint"` // "snapshot" (default) or "hash"
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	SSLCert string `mapstructure:"ssl_cert"`
	SSLKey  string `mapstructure:"ssl_key"`
}

// An OIDCConfig object configures an OpenID Connect provider that is used to authenticate logins.
type OIDCConfig struct {
	Name           string `mapstructure:"name"`
	ClientId       string `mapstructure:"client_id"`
	ProviderUrl    string `mapstructure:"provider_url"`
	TokenCacheSize int    `mapstructure:"token_cache_size"`
}

// AnnouncementConfig is a global notification sent on a cron schedule.
type AnnouncementConfig struct {
	Name  string `mapstructure:"name"`
	Spec  string `mapstructure:"spec"`
	Title string `mapstructure:"title"`
	Body  string `mapstructure:"body"`
}

// requiredFields lists the remote fields in the order they are checked.
func (r RemoteConfig) requiredFields() [][2]string {
	return [][2]string{
		{"api_key", r.APIKey},
		{"auth_domain", r.AuthDomain},
		{"database_url", r.DatabaseURL},
		{"project_id", r.ProjectID},
		{"storage_bucket", r.StorageBucket},
		{"messaging_sender_id", r.MessagingSenderID},
		{"app_id", r.AppID},
	}
}

// MissingField returns the name of the first required remote field that is empty, or "" if none is.
func (r RemoteConfig) MissingField() string {
	for _, f := range r.requiredFields() {
		if strings.TrimSpace(f[1]) == "" {
			return f[0]
		}
	}
	return ""
}

// Ready reports whether every required remote field is set.
func (r RemoteConfig) Ready() bool {
	return r.MissingField() == ""
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flagSet.String("local-type", "", "local store type (buntdb, sqlite, postgres)")
	flagSet.String("local-path", "", "path of the local buntdb file")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.Replace(name, "-", "_", -1))
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either point to a single TOML
// file or to a directory, in which case all *.toml files in this directory are concatenated. It returns a Config
// object with defaults applied.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	v := viper.New()
	v.SetDefault("server.addr", defaultAddr)
	v.SetDefault("local.type", defaultLocalType)
	v.SetDefault("local.path", defaultLocalPath)
	v.SetDefault("local.poll_interval", defaultPollInterval)
	v.SetDefault("remote.timeout", defaultRemoteTimeout)
	v.SetDefault("log_level", "INFO")
	for _, key := range []string{
		"remote.api_key", "remote.auth_domain", "remote.database_url", "remote.project_id",
		"remote.storage_bucket", "remote.messaging_sender_id", "remote.app_id",
		"remote.auth_token", "remote.credentials_file", "local.dsn", "local.lock_path", "local.fingerprint",
	} {
		v.SetDefault(key, "")
	}
	if flagSet != nil {
		flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
		bindFlag(v, flagSet, "log_level", "log_level")
		bindFlag(v, flagSet, "local.type", "local_type")
		bindFlag(v, flagSet, "local.path", "local_path")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		v.SetConfigType("toml")
		if err := v.ReadConfig(bytes.NewBuffer(contents)); err != nil {
			return nil, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	globals.AppLogger.Debug("config", "remote_ready", cfg.Remote.Ready(), "local_type", cfg.Local.Type)
	return &cfg, nil
}

func bindFlag(v *viper.Viper, flagSet *pflag.FlagSet, key, flagName string) {
	if f := flagSet.Lookup(flagName); f != nil {
		if err := v.BindPFlag(key, f); err != nil {
			globals.AppLogger.Error("could not bind flag (ignored)", "flag", flagName, "error", err)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Local.Type == "" {
		c.Local.Type = defaultLocalType
	}
	if c.Local.Path == "" {
		c.Local.Path = defaultLocalPath
	}
	if c.Local.LockPath == "" && c.Local.Path != ":memory:" {
		c.Local.LockPath = c.Local.Path + ".lock"
	}
	if c.Local.Fingerprint == "" {
		c.Local.Fingerprint = "snapshot"
	}
	if c.Local.PollInterval <= 0 {
		c.Local.PollInterval = defaultPollInterval
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = defaultRemoteTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	for i := range c.OIDCConfigs {
		if c.OIDCConfigs[i].TokenCacheSize <= 0 {
			c.OIDCConfigs[i].TokenCacheSize = defaultTokenCacheSize
		}
	}
}
