package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/baaaaaaaka/rproxy/internal/config"
)

var (
	version = "v0.1.0"
	commit  = ""
	date    = ""
)

type rootOptions struct {
	v   *viper.Viper
	log *slog.Logger
}

func (o *rootOptions) configPath() string { return o.v.GetString("config") }

func (o *rootOptions) openStore() (*config.Store, error) {
	return config.NewStore(o.configPath())
}

func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{
		v:   newViper(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cmd := &cobra.Command{
		Use:           "rproxy",
		Short:         "Launch programs with proxy environment variables from saved profiles",
		SilenceErrors: false,
		SilenceUsage:  true,
		Version:       buildVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.v.GetString("log-level"))
			if err != nil {
				return err
			}
			opts.log = logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Override profile file path (default: OS user config dir)")
	flags.String("settings", "", "Settings file (default: settings.yaml next to the profile file)")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	for _, name := range []string{"config", "settings", "log-level"} {
		_ = opts.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		newProfileCmd(opts),
		newPsCmd(opts),
		newLaunchCmd(opts),
	)

	return cmd
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
