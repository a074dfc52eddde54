package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/mgmtd/internal/admin"
	"github.com/danmuck/mgmtd/internal/config"
	"github.com/danmuck/mgmtd/internal/startup"
	"github.com/spf13/cobra"
)

const (
	envAdminToken = "MGMTD_ADMIN_TOKEN"
	envAdminCA    = "MGMTD_ADMIN_CA"
)

type rootOptions struct {
	configPath string
	addr       string
	token      string
	caFile     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "mgmtd",
		Short:         "Management subsystem bring-up daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml)")
	flags.StringVar(&opts.addr, "addr", "", "admin address for remote commands (default from config)")
	flags.StringVar(&opts.token, "token", "", "admin bearer token (default $"+envAdminToken+")")
	flags.StringVar(&opts.caFile, "ca", "", "CA file for an HTTPS admin address (default $"+envAdminCA+")")

	cmd.AddCommand(
		newServeCmd(opts),
		newLoadCmd(opts),
		newUnloadCmd(opts),
		newStatusCmd(opts),
		newMBeansCmd(opts),
		newGetCmd(opts),
		newInvokeCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// loadConfig returns defaults when no config file was given.
func (o *rootOptions) loadConfig() (startup.Config, error) {
	if strings.TrimSpace(o.configPath) == "" {
		return startup.DefaultConfig(), nil
	}
	return config.LoadServiceConfig(o.configPath)
}

func (o *rootOptions) client() (*admin.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	addr := strings.TrimSpace(o.addr)
	if addr == "" {
		addr = cfg.AdminAddr
	}
	if addr == "" {
		return nil, fmt.Errorf("no admin address: set --addr or admin_addr")
	}
	token := strings.TrimSpace(o.token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envAdminToken))
	}
	if token == "" {
		token = cfg.AdminToken
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	caFile := strings.TrimSpace(o.caFile)
	if caFile == "" {
		caFile = strings.TrimSpace(os.Getenv(envAdminCA))
	}
	if caFile != "" {
		return admin.NewTLSClient(addr, token, caFile)
	}
	if cfg.AdminTLS() && !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	return admin.NewClient(addr, token), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
