package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a starter config in format "toml" or "yaml".
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		return tomlTemplate, nil
	case "yaml", "yml":
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `id = "mgmtd.local"
loaders = ["loader.kv", "loader.runtime", "loader.settings"]
load_on_start = true
heartbeat = "30s"
admin_addr = "127.0.0.1:7070"
admin_token = ""
# admin_tls_cert = "/etc/mgmtd/tls.crt"
# admin_tls_key = "/etc/mgmtd/tls.key"
cors_origins = ["http://localhost:3000"]
service_urls = []
`

const yamlTemplate = `id: mgmtd.local
loaders:
  - loader.kv
  - loader.runtime
  - loader.settings
load_on_start: true
heartbeat: 30s
admin_addr: 127.0.0.1:7070
admin_token: ""
# admin_tls_cert: /etc/mgmtd/tls.crt
# admin_tls_key: /etc/mgmtd/tls.key
cors_origins:
  - http://localhost:3000
service_urls: []
`
