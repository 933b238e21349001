package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/baaaaaaaka/rproxy/internal/config"
)

const (
	keyProtocol     = "default_protocol"
	keyHost         = "default_host"
	keyPort         = "default_port"
	keyCheckTimeout = "check_timeout"

	defaultCheckTimeout = 3 * time.Second
)

type settings struct {
	// Defaults fills in whatever the proxy flags leave unset.
	Defaults     config.ProxyConfig
	CheckTimeout time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyProtocol, string(config.ProtocolHTTP))
	v.SetDefault(keyHost, "127.0.0.1")
	v.SetDefault(keyPort, 7890)
	v.SetDefault(keyCheckTimeout, defaultCheckTimeout.String())
	return v
}

func (o *rootOptions) settingsPath() (string, error) {
	if p := o.v.GetString("settings"); p != "" {
		return p, nil
	}
	storePath := o.configPath()
	if storePath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return "", err
		}
		storePath = p
	}
	return filepath.Join(filepath.Dir(storePath), "settings.yaml"), nil
}

// loadSettings reads the optional settings file. A missing file leaves the
// built-in defaults and any RPROXY_* environment overrides in place.
func (o *rootOptions) loadSettings() (settings, error) {
	path, err := o.settingsPath()
	if err != nil {
		return settings{}, err
	}
	o.v.SetConfigFile(path)
	if err := o.v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return settings{}, fmt.Errorf("read settings %s: %w", path, err)
		}
		o.log.Debug("settings file not found", "path", path)
	} else {
		o.log.Debug("loaded settings", "path", path)
	}

	proto, err := config.ParseProtocol(o.v.GetString(keyProtocol))
	if err != nil {
		return settings{}, fmt.Errorf("settings %s: %w", keyProtocol, err)
	}
	s := settings{
		Defaults: config.ProxyConfig{
			Protocol: proto,
			Host:     strings.TrimSpace(o.v.GetString(keyHost)),
			Port:     o.v.GetInt(keyPort),
		},
		CheckTimeout: o.v.GetDuration(keyCheckTimeout),
	}
	if s.CheckTimeout <= 0 {
		s.CheckTimeout = defaultCheckTimeout
	}
	return s, nil
}

// proxyFlags are the --protocol/--host/--port flags shared by several
// commands. Only flags the user actually set override the base config.
type proxyFlags struct {
	protocol string
	host     string
	port     int
}

func (f *proxyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.protocol, "protocol", "", "Proxy protocol: http, socks5, socks4")
	cmd.Flags().StringVar(&f.host, "host", "", "Proxy host")
	cmd.Flags().IntVar(&f.port, "port", 0, "Proxy port")
}

func (f *proxyFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"protocol", "host", "port"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *proxyFlags) apply(cmd *cobra.Command, base config.ProxyConfig) (config.ProxyConfig, error) {
	out := base
	if cmd.Flags().Changed("protocol") {
		p, err := config.ParseProtocol(f.protocol)
		if err != nil {
			return base, err
		}
		out.Protocol = p
	}
	if cmd.Flags().Changed("host") {
		out.Host = strings.TrimSpace(f.host)
	}
	if cmd.Flags().Changed("port") {
		out.Port = f.port
	}
	return out, nil
}
