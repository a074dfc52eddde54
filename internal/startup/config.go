package startup

import (
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/mgmtd/internal/loaders/kv"
	"github.com/danmuck/mgmtd/internal/loaders/runtimemon"
	"github.com/danmuck/mgmtd/internal/loaders/settings"
)

// Config configures the daemon runtime.
type Config struct {
	ID                string
	BuiltinLoaderIDs  []string
	LoadOnStart       bool
	HeartbeatInterval time.Duration
	AdminAddr         string
	AdminToken        string
	AdminTLSCert      string
	AdminTLSKey       string
	CorsOrigins       []string
	ServiceURLs       []string
}

// DefaultConfig returns standalone defaults.
func DefaultConfig() Config {
	return Config{
		ID:                "mgmtd.local",
		BuiltinLoaderIDs:  []string{kv.LoaderID, runtimemon.LoaderID, settings.LoaderID},
		LoadOnStart:       false,
		HeartbeatInterval: 30 * time.Second,
		AdminAddr:         "127.0.0.1:7070",
	}
}

// Settings flattens the effective configuration for the settings loader.
// The admin token is never exposed.
func (c Config) Settings() map[string]string {
	token := ""
	if c.AdminToken != "" {
		token = "set"
	}
	return map[string]string{
		"ID":                c.ID,
		"Loaders":           strings.Join(c.BuiltinLoaderIDs, ","),
		"LoadOnStart":       strconv.FormatBool(c.LoadOnStart),
		"HeartbeatInterval": c.HeartbeatInterval.String(),
		"AdminAddr":         c.AdminAddr,
		"AdminToken":        token,
		"AdminTLS":          strconv.FormatBool(c.AdminTLS()),
		"CorsOrigins":       strings.Join(c.CorsOrigins, ","),
		"ServiceURLs":       strings.Join(c.ServiceURLs, ","),
	}
}

// AdminTLS reports whether the admin façade serves HTTPS.
func (c Config) AdminTLS() bool {
	return c.AdminTLSCert != "" && c.AdminTLSKey != ""
}
