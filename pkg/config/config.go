package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// Contact goes into the User-Agent so Wikimedia operators can reach
	// whoever runs this tool, per their user agent policy.
	Contact     string                `yaml:"contact"`
	DefaultSite string                `yaml:"default_site"`
	Request     RequestConfig         `yaml:"request"`
	SPARQL      SPARQLConfig          `yaml:"sparql"`
	Log         LogConfig             `yaml:"log"`
	DB          DBConfig              `yaml:"db"`
	Sites       map[string]SiteConfig `yaml:"sites"`
}

// RequestConfig holds HTTP request settings for the action API.
type RequestConfig struct {
	Timeout    Duration `yaml:"timeout"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// SPARQLConfig holds query service settings.
type SPARQLConfig struct {
	Endpoint string   `yaml:"endpoint"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// SiteConfig holds the credentials and edit behavior for one Wikibase
// instance, keyed by host in Config.Sites.
type SiteConfig struct {
	// User and Password hold bot-password credentials ("User@tool").
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Bot marks edits with the bot flag; the account needs the bot right.
	Bot bool `yaml:"bot"`
	// MaxLag is the maxlag parameter. Unset means 5; zero or negative
	// disables it, which interactive use should prefer.
	MaxLag *int        `yaml:"maxlag"`
	OAuth  OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds owner-only OAuth 1.0a credentials. When ConsumerKey is
// set, OAuth wins over the bot password.
type OAuthConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	AccessToken    string `yaml:"access_token"`
	AccessSecret   string `yaml:"access_secret"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Main LogSettings `yaml:"main"`
	API  LogSettings `yaml:"api"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	maxlag := 5
	return &Config{
		Contact:     "",
		DefaultSite: "www.wikidata.org",
		Request: RequestConfig{
			Timeout:    Duration(20 * time.Second),
			RetryDelay: Duration(60 * time.Second),
		},
		SPARQL: SPARQLConfig{
			Endpoint: "https://query.wikidata.org/sparql",
			CacheTTL: Duration(7 * Day),
		},
		Log: LogConfig{
			Main: LogSettings{
				Path:  "./logs/wbctl.log",
				Level: "INFO",
			},
			API: LogSettings{
				Path:  "./logs/api.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/wbgo.db",
		},
		Sites: map[string]SiteConfig{
			"www.wikidata.org": {
				MaxLag: &maxlag,
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		cfg.applyEnv()
		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills secrets for the default site from the environment when the
// file left them empty, so credentials can stay out of the config file.
func (c *Config) applyEnv() {
	site := c.Sites[c.DefaultSite]
	if site.Password == "" {
		if v := os.Getenv("WBGO_PASSWORD"); v != "" {
			site.Password = v
		}
	}
	if site.User == "" {
		if v := os.Getenv("WBGO_USER"); v != "" {
			site.User = v
		}
	}
	if site.OAuth.ConsumerKey == "" {
		if v := os.Getenv("WBGO_OAUTH_CONSUMER_KEY"); v != "" {
			site.OAuth.ConsumerKey = v
		}
	}
	if site.OAuth.ConsumerSecret == "" {
		if v := os.Getenv("WBGO_OAUTH_CONSUMER_SECRET"); v != "" {
			site.OAuth.ConsumerSecret = v
		}
	}
	if site.OAuth.AccessToken == "" {
		if v := os.Getenv("WBGO_OAUTH_ACCESS_TOKEN"); v != "" {
			site.OAuth.AccessToken = v
		}
	}
	if site.OAuth.AccessSecret == "" {
		if v := os.Getenv("WBGO_OAUTH_ACCESS_SECRET"); v != "" {
			site.OAuth.AccessSecret = v
		}
	}
	if c.Sites == nil {
		c.Sites = make(map[string]SiteConfig)
	}
	c.Sites[c.DefaultSite] = site
}

// Site returns the configuration for host, falling back to an anonymous
// zero value when the host has no section.
func (c *Config) Site(host string) SiteConfig {
	return c.Sites[host]
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wbgo Configuration
# ------------------
# Durations accept: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Secrets may be left empty and provided via WBGO_USER, WBGO_PASSWORD and
# WBGO_OAUTH_* environment variables instead.

`)
	data = append(header, data...)

	// Inject comments for fields whose zero value is meaningful.
	reMaxlag := regexp.MustCompile(`(?m)^(\s+)maxlag:`)
	data = reMaxlag.ReplaceAll(data, []byte("${1}# 0 disables waiting for replication lag (interactive use)\n${1}maxlag:"))

	reContact := regexp.MustCompile(`(?m)^contact:`)
	data = reContact.ReplaceAll(data, []byte("# An email address or URL, required by the Wikimedia user agent policy\ncontact:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
