package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/qurandl/internal/dirs"
	"github.com/tanq16/qurandl/internal/utils"
	"gopkg.in/yaml.v3"
)

const FileName = "qurandl.yaml"

const redactedValue = "********"

var secretHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie"}

// Theme ids follow the reader: 0 light, 1 sepia, 2 dark.
const (
	ThemeLight = 0
	ThemeSepia = 1
	ThemeDark  = 2
)

type Reader struct {
	Mode          int    `yaml:"mode"`
	FGHighlight   int    `yaml:"fg_highlight"`
	Khatmah       int    `yaml:"khatmah"`
	AdaptiveFont  bool   `yaml:"adaptive_font"`
	QCF1Size      int    `yaml:"qcf1_size"`
	QCF2Size      int    `yaml:"qcf2_size"`
	QCF           int    `yaml:"qcf"`
	VerseType     int    `yaml:"verse_type"`
	VerseFontSize int    `yaml:"verse_font_size"`
	Tafsir        string `yaml:"tafsir"`
	Translation   string `yaml:"translation"`
	SideFont      string `yaml:"side_content_font"`
}

type Downloader struct {
	Timeout          time.Duration     `yaml:"timeout"`
	KeepAliveTimeout time.Duration     `yaml:"keep_alive_timeout"`
	UserAgent        string            `yaml:"user_agent"`
	Proxy            string            `yaml:"proxy"`
	ProxyUsername    string            `yaml:"proxy_username"`
	ProxyPassword    string            `yaml:"proxy_password"`
	Headers          map[string]string `yaml:"headers"`
	Token            string            `yaml:"token"`
	S3Profile        string            `yaml:"s3_profile"`
}

type Content struct {
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Depth  int    `yaml:"depth"`
	Token  string `yaml:"token"`
	SSHKey string `yaml:"ssh_key"`
}

type Config struct {
	Language           string     `yaml:"language"`
	Theme              int        `yaml:"theme"`
	VOTD               bool       `yaml:"votd"`
	MissingFileWarning bool       `yaml:"missing_file_warning"`
	DownloadsDir       string     `yaml:"downloads_dir"`
	CatalogFile        string     `yaml:"catalog_file"`
	Reader             Reader     `yaml:"reader"`
	Downloader         Downloader `yaml:"downloader"`
	Content            Content    `yaml:"content"`

	path string
}

func Default() *Config {
	return &Config{
		Language:           "en",
		Theme:              ThemeLight,
		VOTD:               true,
		MissingFileWarning: true,
		Reader: Reader{
			FGHighlight:   1,
			AdaptiveFont:  true,
			QCF1Size:      22,
			QCF2Size:      20,
			QCF:           1,
			VerseFontSize: 20,
			Tafsir:        "sa3dy",
			Translation:   "en_khattab",
			SideFont:      "Expo Arabic,14",
		},
		Downloader: Downloader{
			Timeout:          3 * time.Minute,
			KeepAliveTimeout: 90 * time.Second,
			Headers:          map[string]string{},
		},
		Content: Content{
			Depth: 1,
		},
	}
}

// DefaultPath is <user config dir>/qurandl/qurandl.yaml.
func DefaultPath() (string, error) {
	dir, err := dirs.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the file at path on top of the defaults and writes the merged
// result back, so keys added in newer versions show up in the user's file.
// A missing file is created. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("op", "config/config").Msgf("creating default config at %s", path)
	case err != nil:
		return nil, fmt.Errorf("error reading config: %v", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config %s: %v", path, err)
		}
		if cfg.Downloader.Headers == nil {
			cfg.Downloader.Headers = map[string]string{}
		}
	}
	if err := cfg.Save(); err != nil {
		// a read-only config dir is not fatal, the merged values are still usable
		log.Warn().Str("op", "config/config").Err(err).Msg("could not write config back")
	}
	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error encoding config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %v", err)
	}
	// the file holds tokens and proxy credentials
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("error writing config: %v", err)
	}
	if err := os.Chmod(c.path, 0600); err != nil {
		return fmt.Errorf("error setting config permissions: %v", err)
	}
	return nil
}

// Redacted returns a copy that is safe to print, with tokens, the proxy
// password and credential headers masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Downloader.Token = redact(c.Downloader.Token)
	out.Downloader.ProxyPassword = redact(c.Downloader.ProxyPassword)
	out.Content.Token = redact(c.Content.Token)
	out.Downloader.Headers = make(map[string]string, len(c.Downloader.Headers))
	for k, v := range c.Downloader.Headers {
		for _, secret := range secretHeaders {
			if strings.EqualFold(k, secret) {
				v = redact(v)
				break
			}
		}
		out.Downloader.Headers[k] = v
	}
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redactedValue
}

func (c *Config) Path() string {
	return c.path
}

// ResolveDownloadsDir returns override if set, then downloads_dir, then the
// platform default.
func (c *Config) ResolveDownloadsDir(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	if c.DownloadsDir != "" {
		return filepath.Abs(c.DownloadsDir)
	}
	return dirs.DefaultDownloadsDir()
}

func (c *Config) HTTPClientConfig() utils.HTTPClientConfig {
	headers := make(map[string]string, len(c.Downloader.Headers))
	for k, v := range c.Downloader.Headers {
		headers[k] = v
	}
	return utils.HTTPClientConfig{
		Timeout:       c.Downloader.Timeout,
		KATimeout:     c.Downloader.KeepAliveTimeout,
		ProxyURL:      c.Downloader.Proxy,
		ProxyUsername: c.Downloader.ProxyUsername,
		ProxyPassword: c.Downloader.ProxyPassword,
		UserAgent:     c.Downloader.UserAgent,
		Headers:       headers,
		Token:         c.Downloader.Token,
	}
}
