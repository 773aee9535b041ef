package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/focusassist/internal/export"
	"github.com/sadopc/focusassist/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's event log",
	Long: `Export the event log of a session (the latest by default) as CSV, JSON
or YAML. JSON and YAML exports of a single session include its focus blocks.`,
	Example: `  focusassist export --out session.json
  focusassist export --all --format csv --out events.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportFormat  string
	exportSession int64
	exportAll     bool
	exportOut     string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "csv, json or yaml (default from the --out extension)")
	exportCmd.Flags().Int64VarP(&exportSession, "session", "s", 0, "session ID (default latest)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every session's events")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file")
	_ = exportCmd.MarkFlagRequired("out")
	exportCmd.MarkFlagsMutuallyExclusive("session", "all")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format := exportFormat
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(exportOut), ".")
	}
	if format == "" {
		format = export.FormatCSV
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var report export.Report
	if exportAll {
		report.Events, err = st.ListEvents(0)
	} else {
		report.Session, err = resolveSession(st, exportSession)
		if err == nil {
			report.Events, err = st.ListEvents(report.Session.ID)
		}
	}
	if err != nil {
		return err
	}

	if err := export.Write(format, report, exportOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", len(report.Events), exportOut)
	return nil
}

// resolveSession returns session id, or the latest session when id is 0.
func resolveSession(st *store.Store, id int64) (*store.PomodoroSession, error) {
	if id != 0 {
		return st.GetSession(id)
	}
	sess, err := st.LatestSession()
	if err != nil {
		return nil, fmt.Errorf("no sessions recorded yet: %w", err)
	}
	return sess, nil
}
