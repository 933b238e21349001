package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/rproxy/internal/config"
	"github.com/baaaaaaaka/rproxy/internal/launcher"
	"github.com/baaaaaaaka/rproxy/internal/proc"
	"github.com/baaaaaaaka/rproxy/internal/tui"
)

var (
	newLauncher   = func() *launcher.Launcher { return launcher.New() }
	selectProcess = tui.SelectProcess
)

type launchOptions struct {
	proxy   proxyFlags
	profile string
	pid     int
	exe     string
	args    string
	dir     string
	filter  string
}

func newLaunchCmd(root *rootOptions) *cobra.Command {
	opts := &launchOptions{}

	cmd := &cobra.Command{
		Use:   "launch [flags] [-- args...]",
		Short: "Start a program with proxy environment variables",
		Long: "Start a program with HTTP_PROXY, HTTPS_PROXY and ALL_PROXY set.\n" +
			"The program is given by --exe, by the executable of --pid, or picked\n" +
			"from the running processes when neither flag is set.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, root, opts, args)
		},
	}

	opts.proxy.register(cmd)
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "Use a saved profile")
	cmd.Flags().IntVar(&opts.pid, "pid", 0, "Launch the executable of this running process")
	cmd.Flags().StringVar(&opts.exe, "exe", "", "Executable to launch")
	cmd.Flags().StringVar(&opts.args, "args", "", "Arguments, split on whitespace")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Working directory (default: the executable's directory)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Initial filter for the process picker")
	cmd.MarkFlagsMutuallyExclusive("pid", "exe")
	return cmd
}

func runLaunch(cmd *cobra.Command, root *rootOptions, opts *launchOptions, extra []string) error {
	cfg, err := launchConfig(cmd, root, opts)
	if err != nil {
		return err
	}

	exe, err := launchTarget(cmd.Context(), root, opts, cfg)
	if err != nil {
		return err
	}
	if exe == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

	req := launcher.Request{
		Executable: exe,
		Args:       append(splitArgs(opts.args), extra...),
		Config:     cfg,
		Dir:        opts.dir,
	}
	root.log.Info("launching", "exe", req.Executable, "args", req.Args, "proxy", cfg.URL())

	h, err := newLauncher().Launch(req)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Launched %s (pid %d) with proxy %s\n", h.Executable, h.PID, h.ProxyURL)
	return nil
}

// launchConfig picks the proxy: a saved profile, or the settings defaults
// overridden by --protocol/--host/--port.
func launchConfig(cmd *cobra.Command, root *rootOptions, opts *launchOptions) (config.ProxyConfig, error) {
	if opts.profile != "" {
		if opts.proxy.changed(cmd) {
			return config.ProxyConfig{}, errors.New("--profile cannot be combined with --protocol, --host or --port")
		}
		p, err := findProfile(root, opts.profile)
		if err != nil {
			return config.ProxyConfig{}, err
		}
		return p.ProxyConfig, nil
	}

	s, err := root.loadSettings()
	if err != nil {
		return config.ProxyConfig{}, err
	}
	cfg, err := opts.proxy.apply(cmd, s.Defaults)
	if err != nil {
		return config.ProxyConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.ProxyConfig{}, fmt.Errorf("%w: %v", config.ErrInvalidProfile, err)
	}
	return cfg, nil
}

// launchTarget returns the executable to start, or "" when the picker was
// closed without a choice.
func launchTarget(ctx context.Context, root *rootOptions, opts *launchOptions, cfg config.ProxyConfig) (string, error) {
	if opts.exe != "" {
		return opts.exe, nil
	}

	dir := newDirectory()
	if opts.pid != 0 {
		return dir.ResolveExecutable(opts.pid)
	}

	info, err := selectProcess(ctx, tui.Options{
		LoadProcesses: func(context.Context) ([]proc.Info, error) { return dir.List() },
		ProxyURL:      cfg.URL(),
		Filter:        opts.filter,
	})
	if err != nil || info == nil {
		return "", err
	}
	if info.Executable != "" {
		return info.Executable, nil
	}
	root.log.Debug("resolving picked process", "pid", info.PID, "name", info.Name)
	return dir.ResolveExecutable(info.PID)
}

func splitArgs(s string) []string {
	return strings.Fields(s)
}
