package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/rproxy/internal/config"
	"github.com/baaaaaaaka/rproxy/internal/env"
	"github.com/baaaaaaaka/rproxy/internal/health"
)

func newProfileCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved proxy profiles",
	}

	cmd.AddCommand(
		newProfileListCmd(root),
		newProfileShowCmd(root),
		newProfileAddCmd(root),
		newProfileUpdateCmd(root),
		newProfileRenameCmd(root),
		newProfileRemoveCmd(root),
		newProfileEnvCmd(root),
		newProfileCheckCmd(root),
		newProfileResetCmd(root),
	)
	return cmd
}

func findProfile(root *rootOptions, name string) (config.Profile, error) {
	store, err := root.openStore()
	if err != nil {
		return config.Profile{}, err
	}
	profiles, err := store.Load()
	if err != nil {
		return config.Profile{}, err
	}
	p, ok := config.Find(profiles, name)
	if !ok {
		return config.Profile{}, fmt.Errorf("%w: %q", config.ErrNotFound, name)
	}
	return p, nil
}

func newProfileListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			profiles, err := store.Load()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles. Add one with `rproxy profile add <name>`.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tPROTOCOL\tHOST\tPORT")
			for _, p := range profiles {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name, p.Protocol.Label(), p.Host, p.Port)
			}
			return w.Flush()
		},
	}
}

func newProfileShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := findProfile(root, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Name:     %s\n", p.Name)
			_, _ = fmt.Fprintf(out, "Protocol: %s\n", p.Protocol.Label())
			_, _ = fmt.Fprintf(out, "Host:     %s\n", p.Host)
			_, _ = fmt.Fprintf(out, "Port:     %d\n", p.Port)
			_, _ = fmt.Fprintf(out, "URL:      %s\n", p.URL())
			return nil
		},
	}
}

func newProfileAddCmd(root *rootOptions) *cobra.Command {
	var pf proxyFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a profile (unset fields use the settings defaults)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.loadSettings()
			if err != nil {
				return err
			}
			cfg, err := pf.apply(cmd, s.Defaults)
			if err != nil {
				return err
			}
			store, err := root.openStore()
			if err != nil {
				return err
			}

			p := config.Profile{Name: args[0], ProxyConfig: cfg}
			profiles, err := store.Update(func(profiles []config.Profile) ([]config.Profile, error) {
				return config.Add(profiles, p)
			})
			if err != nil {
				return err
			}
			added := profiles[len(profiles)-1]
			root.log.Info("profile added", "name", added.Name, "path", store.Path())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q (%s)\n", added.Name, added.URL())
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func newProfileUpdateCmd(root *rootOptions) *cobra.Command {
	var pf proxyFlags

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change a profile's protocol, host or port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pf.changed(cmd) {
				return fmt.Errorf("nothing to update: pass --protocol, --host or --port")
			}
			store, err := root.openStore()
			if err != nil {
				return err
			}

			var updated config.Profile
			_, err = store.Update(func(profiles []config.Profile) ([]config.Profile, error) {
				cur, ok := config.Find(profiles, args[0])
				if !ok {
					return profiles, fmt.Errorf("%w: %q", config.ErrNotFound, args[0])
				}
				cfg, err := pf.apply(cmd, cur.ProxyConfig)
				if err != nil {
					return profiles, err
				}
				updated = config.Profile{Name: cur.Name, ProxyConfig: cfg}
				return config.UpdateConfig(profiles, cur.Name, cfg)
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %q (%s)\n", updated.Name, updated.URL())
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func newProfileRenameCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			if _, err := store.Update(func(profiles []config.Profile) ([]config.Profile, error) {
				return config.Rename(profiles, args[0], args[1])
			}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed profile %q to %q\n", args[0], args[1])
			return nil
		},
	}
}

func newProfileRemoveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			if _, err := store.Update(func(profiles []config.Profile) ([]config.Profile, error) {
				return config.Remove(profiles, args[0])
			}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed profile %q\n", args[0])
			return nil
		},
	}
}

func newProfileEnvCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env <name>",
		Short: "Print the environment variables a launch would set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := findProfile(root, args[0])
			if err != nil {
				return err
			}
			vars := env.Build(p.ProxyConfig)
			for _, k := range env.ProxyVars {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, vars[k])
			}
			return nil
		},
	}
}

func newProfileCheckCmd(root *rootOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "check <name>",
		Short: "Check that a profile's proxy is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.loadSettings()
			if err != nil {
				return err
			}
			p, err := findProfile(root, args[0])
			if err != nil {
				return err
			}

			checker := health.Checker{Timeout: s.CheckTimeout, Target: target}
			root.log.Debug("checking proxy", "profile", p.Name, "address", p.Address(), "target", target, "timeout", s.CheckTimeout)
			if err := checker.Check(cmd.Context(), p.ProxyConfig); err != nil {
				return err
			}
			if target == "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: proxy %s is reachable\n", p.Name, p.Address())
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s tunnel to %s OK\n", p.Name, p.Protocol.Label(), target)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Also open a tunnel to host:port through the proxy")
	return cmd
}

func newProfileResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Move the profile file aside and start with an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.openStore()
			if err != nil {
				return err
			}
			dest, err := store.Quarantine()
			if err != nil {
				return err
			}
			if dest == "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No profile file at %s\n", store.Path())
				return nil
			}
			root.log.Warn("profile file moved aside", "from", store.Path(), "to", dest)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", store.Path(), dest)
			return nil
		},
	}
}
