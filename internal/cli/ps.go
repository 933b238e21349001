package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baaaaaaaka/rproxy/internal/proc"
)

var newDirectory = proc.NewDirectory

func newPsCmd(root *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List running processes and their executables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := newDirectory().List()
			if err != nil {
				return err
			}
			infos = proc.Filter(infos, filter)
			root.log.Debug("listed processes", "count", len(infos), "filter", filter)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PID\tNAME\tEXECUTABLE")
			for _, info := range infos {
				exe := info.Executable
				if exe == "" {
					exe = "-"
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", info.PID, info.Name, exe)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only show processes whose name, pid or path contains this text")
	return cmd
}
