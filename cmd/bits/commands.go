package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceyewan/bits/snowflake"
	"github.com/ceyewan/bits/xerrors"
)

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "bits",
		Short:         "Snowflake ID generator",
		Long:          "bits generates and decodes 64-bit time-ordered Snowflake IDs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f.register(root)

	root.AddCommand(newMakeCmd(f), newParseCmd(f), newBoundsCmd(f))
	return root
}

// withApp 为子命令创建 app，命令结束后释放
func withApp(f *flags, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), cmd, f)
		if err != nil {
			return err
		}
		defer func() {
			err = xerrors.Combine(err, a.Close())
		}()
		return run(cmd, a, args)
	}
}

func newMakeCmd(f *flags) *cobra.Command {
	var (
		n       int
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Generate IDs",
		Args:  cobra.NoArgs,
		RunE: withApp(f, func(cmd *cobra.Command, a *app, _ []string) error {
			if n <= 0 {
				return xerrors.Wrapf(xerrors.ErrInvalidInput, "-n must be positive, got %d", n)
			}
			out := cmd.OutOrStdout()
			for i := 0; i < n; i++ {
				id, err := a.gen.Make(cmd.Context())
				if err != nil {
					return err
				}
				if verbose {
					fmt.Fprintf(out, "%+v\n", id)
				} else {
					fmt.Fprintln(out, id.String())
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "number of IDs")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print decoded fields")
	return cmd
}

// parsed parse 命令的输出
type parsed struct {
	ID           string `json:"id"`
	Time         string `json:"time"`
	Timestamp    int64  `json:"timestamp"`
	DatacenterID int64  `json:"datacenter_id"`
	WorkerID     int64  `json:"worker_id"`
	Sequence     int64  `json:"sequence"`
}

func describe(id snowflake.ID) parsed {
	return parsed{
		ID:           id.String(),
		Time:         id.Time().Format(time.RFC3339Nano),
		Timestamp:    id.Timestamp(),
		DatacenterID: id.DatacenterID(),
		WorkerID:     id.WorkerID(),
		Sequence:     id.Sequence(),
	}
}

func newParseCmd(f *flags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <id>...",
		Short: "Decode IDs into their fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(f, func(cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range args {
				id, err := a.gen.ParseString(s)
				if err != nil {
					return err
				}
				if err := printParsed(out, describe(id), asJSON); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per ID")
	return cmd
}

func printParsed(out io.Writer, p parsed, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(p)
	}
	_, err := fmt.Fprintf(out, "id:            %s\ntime:          %s\ntimestamp:     %d\ndatacenter_id: %d\nworker_id:     %d\nsequence:      %d\n",
		p.ID, p.Time, p.Timestamp, p.DatacenterID, p.WorkerID, p.Sequence)
	return err
}

func newBoundsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "bounds <RFC3339 time>",
		Short: "Print the smallest and largest ID issuable at a time",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(f, func(cmd *cobra.Command, a *app, args []string) error {
			t, err := time.Parse(time.RFC3339Nano, args[0])
			if err != nil {
				return xerrors.Wrapf(xerrors.ErrInvalidInput, "time %q: %v", args[0], err)
			}
			lo, err := a.gen.MakeFromTimestamp(t)
			if err != nil {
				return err
			}
			hi, err := a.gen.MaxFromTimestamp(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "min: %s\nmax: %s\n", lo, hi)
			return nil
		}),
	}
}
