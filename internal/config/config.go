package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/mgmtd/internal/startup"
	tomlv2 "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the daemon configuration.
type FileConfig struct {
	ID          string   `toml:"id" yaml:"id"`
	Loaders     []string `toml:"loaders" yaml:"loaders"`
	LoadOnStart bool     `toml:"load_on_start" yaml:"load_on_start"`
	Heartbeat   string   `toml:"heartbeat" yaml:"heartbeat"`
	AdminAddr   string   `toml:"admin_addr" yaml:"admin_addr"`
	AdminToken  string   `toml:"admin_token,omitempty" yaml:"admin_token,omitempty"`
	TLSCert     string   `toml:"admin_tls_cert,omitempty" yaml:"admin_tls_cert,omitempty"`
	TLSKey      string   `toml:"admin_tls_key,omitempty" yaml:"admin_tls_key,omitempty"`
	CorsOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	ServiceURLs []string `toml:"service_urls" yaml:"service_urls"`
}

// LoadServiceConfig reads path over startup.DefaultConfig. Keys absent from
// the file keep their defaults. Files ending in .yaml or .yml are YAML,
// everything else is TOML.
func LoadServiceConfig(path string) (startup.Config, error) {
	var (
		raw     FileConfig
		defined func(key string) bool
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return startup.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			if field, ok := unknownYAMLField(err); ok {
				return startup.Config{}, fmt.Errorf("config %s: unknown key %q", path, field)
			}
			return startup.Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		keys := make(map[string]any)
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return startup.Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		defined = func(key string) bool {
			_, ok := keys[key]
			return ok
		}
	default:
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return startup.Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return startup.Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
		}
		defined = func(key string) bool {
			return meta.IsDefined(key)
		}
	}

	cfg, err := apply(startup.DefaultConfig(), raw, defined)
	if err != nil {
		return startup.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return startup.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// unknownYAMLField extracts the key from a KnownFields rejection, e.g.
// "line 3: field idd not found in type config.FileConfig".
func unknownYAMLField(err error) (string, bool) {
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		return "", false
	}
	for _, msg := range typeErr.Errors {
		_, rest, ok := strings.Cut(msg, "field ")
		if !ok {
			continue
		}
		if field, _, ok := strings.Cut(rest, " not found in type"); ok {
			return field, true
		}
	}
	return "", false
}

func apply(cfg startup.Config, raw FileConfig, defined func(string) bool) (startup.Config, error) {
	if defined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if defined("loaders") {
		cfg.BuiltinLoaderIDs = normalizeList(raw.Loaders)
	}
	if defined("load_on_start") {
		cfg.LoadOnStart = raw.LoadOnStart
	}
	if defined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return startup.Config{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}
	if defined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if defined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if defined("admin_tls_cert") {
		cfg.AdminTLSCert = strings.TrimSpace(raw.TLSCert)
	}
	if defined("admin_tls_key") {
		cfg.AdminTLSKey = strings.TrimSpace(raw.TLSKey)
	}
	if defined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}
	if defined("service_urls") {
		cfg.ServiceURLs = normalizeList(raw.ServiceURLs)
	}
	return cfg, nil
}

// Validate checks values a file can get wrong. Loader ids are checked when
// the loader registry is built.
func Validate(cfg startup.Config) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat must be > 0")
	}
	if cfg.AdminToken != "" && strings.TrimSpace(cfg.AdminAddr) == "" {
		return fmt.Errorf("admin_token set without admin_addr")
	}
	if (cfg.AdminTLSCert == "") != (cfg.AdminTLSKey == "") {
		return fmt.Errorf("admin_tls_cert and admin_tls_key must be set together")
	}
	for i, u := range cfg.ServiceURLs {
		if !strings.Contains(u, "://") {
			return fmt.Errorf("service_urls[%d] %q has no scheme", i, u)
		}
	}
	return nil
}

// FromService converts a runtime config back to its file shape.
func FromService(cfg startup.Config) FileConfig {
	return FileConfig{
		ID:          cfg.ID,
		Loaders:     append([]string{}, cfg.BuiltinLoaderIDs...),
		LoadOnStart: cfg.LoadOnStart,
		Heartbeat:   cfg.HeartbeatInterval.String(),
		AdminAddr:   cfg.AdminAddr,
		AdminToken:  cfg.AdminToken,
		TLSCert:     cfg.AdminTLSCert,
		TLSKey:      cfg.AdminTLSKey,
		CorsOrigins: append([]string{}, cfg.CorsOrigins...),
		ServiceURLs: append([]string{}, cfg.ServiceURLs...),
	}
}

// Render prints the effective configuration as TOML with the admin token
// redacted.
func Render(cfg startup.Config) (string, error) {
	file := FromService(cfg)
	if file.AdminToken != "" {
		file.AdminToken = "<redacted>"
	}
	var buf bytes.Buffer
	enc := tomlv2.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(file); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
