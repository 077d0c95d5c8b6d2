package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spm/internal/draft"
)

func draftsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect and move saved treatment drafts",
	}
	cmd.AddCommand(draftsListCmd(g), draftsShowCmd(g), draftsClearCmd(g), draftsExportCmd(g), draftsImportCmd(g))
	return cmd
}

func parseRequestID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid request id %q", s)
	}
	return id, nil
}

func draftsListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			list, err := a.drafts.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOLICITUD\tDECIDIDOS\tÍTEMS")
			for _, s := range list {
				fmt.Fprintf(tw, "%d\t%d\t%v\n", s.RequestID, len(s.Decided), s.Decided)
			}
			return tw.Flush()
		},
	}
}

func draftsShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Print a draft's decisions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			d, ok, err := a.drafts.Load(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no draft for request %d", id)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		},
	}
}

func draftsClearCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <request-id>",
		Short: "Discard a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.drafts.Clear(id)
		},
	}
}

func draftsExportCmd(g *globalFlags) *cobra.Command {
	var dir, id string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every draft to a snapshot directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			m, err := draft.Export(a.store, dir, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d drafts\n", m.SnapshotID, m.Entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./snapshots", "Snapshot base directory")
	cmd.Flags().StringVar(&id, "id", "", "Snapshot id (default: UTC timestamp)")
	return cmd
}

func draftsImportCmd(g *globalFlags) *cobra.Command {
	var dir, id string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load drafts from a snapshot directory",
		Long: `Import copies every draft of a snapshot into the configured backend,
overwriting drafts with the same key. Without --id the latest snapshot
recorded in the directory manifest is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := draft.Import(a.store, dir, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d drafts\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./snapshots", "Snapshot base directory")
	cmd.Flags().StringVar(&id, "id", "", "Snapshot id (default: latest)")
	return cmd
}
