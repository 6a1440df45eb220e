package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/pagingsim/datarecording"
	"github.com/sarchlab/pagingsim/tracing"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [flags] FILE",
	Short: "Summarize the memory events of a recording.",
	Long: "`report` reads a SQLite file written by `run --record`, prints " +
		"the per-process event counters and optionally lists the events.",
	Args: cobra.ExactArgs(1),
	RunE: reportEvents,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	f := reportCmd.Flags()
	f.Int("pid", -1, "Only include events of this process")
	f.String("kind", "", "Only include events of this kind")
	f.Int("list", 0, "List at most this many events")
}

func reportEvents(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	pid, _ := f.GetInt("pid")
	kind, _ := f.GetString("kind")
	list, _ := f.GetInt("list")

	filename := args[0]

	_, err := os.Stat(filename)
	if err != nil {
		return err
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	params := datarecording.QueryParams{}

	var where []string
	if pid >= 0 {
		where = append(where, "PID = ?")
		params.Args = append(params.Args, pid)
	}

	if kind != "" {
		where = append(where, "Kind = ?")
		params.Args = append(params.Args, kind)
	}

	params.Where = strings.Join(where, " AND ")

	entries, total, err := tracing.LoadMemEvents(cmd.Context(), reader, params)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d events in %s\n", total, filename)

	counter := tracing.NewEventCounter()
	for _, e := range entries {
		counter.RecordEvent(e.Location, e.MemEvent())
	}

	err = counter.Report(out)
	if err != nil {
		return err
	}

	for i, e := range entries {
		if i >= list {
			break
		}

		fmt.Fprintf(out, "%d %s %s page=%d frame=%d swap=%d:%d region=%d\n",
			e.Seq, e.Location, e.Kind, e.Page, e.Frame,
			e.SwapType, e.SwapOffset, e.Region)
	}

	return nil
}
