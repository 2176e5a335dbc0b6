package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/pkg/store"
	"github.com/ethpandaops/netops/pkg/types"
)

// ShowDBResult is the JSON output format for the show-db command. Row
// slices are omitted when --table selects a different table.
type ShowDBResult struct {
	DBPath     string             `json:"db_path"`
	Tables     []store.TableCount `json:"tables"`
	Devices    []types.Device     `json:"devices,omitempty"`
	Interfaces []types.Interface  `json:"interfaces,omitempty"`
	Incidents  []types.Incident   `json:"incidents,omitempty"`
	Tickets    []types.Ticket     `json:"tickets,omitempty"`
}

// showDBTables are the tables whose rows show-db can print.
var showDBTables = []string{"devices", "interfaces", "incidents", "tickets"}

var (
	showDBPath  string
	showDBTable string
	showDBJSON  bool
)

var showDBCmd = &cobra.Command{
	Use:   "show-db",
	Short: "Show the contents of the database",
	Long: `Print the row count of every table, then the devices, interfaces,
incidents and tickets stored by previous runs.

Examples:
  netops show-db
  netops show-db --table tickets
  netops show-db --db-path outputs/netops.db --json`,
	RunE: runShowDB,
}

func init() {
	rootCmd.AddCommand(showDBCmd)

	showDBCmd.Flags().StringVar(&showDBPath, "db-path", "", "SQLite database path (default from config)")
	showDBCmd.Flags().StringVar(&showDBTable, "table", "",
		"Only print rows of this table ("+strings.Join(showDBTables, ", ")+")")
	showDBCmd.Flags().BoolVar(&showDBJSON, "json", false, "Output in JSON format")
}

func runShowDB(_ *cobra.Command, _ []string) error {
	suppressLogs()

	ctx := context.Background()

	path := showDBPath
	if path == "" {
		cfg, err := loadConfigOrDefaults(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		path = cfg.Storage.DBPath
	}

	st, err := openStore(ctx, path)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	result, err := collectShowDB(ctx, st, path, showDBTable)
	if err != nil {
		return err
	}

	if showDBJSON || !isTerminal() {
		return outputJSON(result)
	}

	printShowDB(os.Stdout, result)

	return nil
}

// collectShowDB reads table counts and the rows of table, or of every
// printable table when table is empty.
func collectShowDB(ctx context.Context, st *store.Store, path, table string) (*ShowDBResult, error) {
	if table != "" && !slices.Contains(showDBTables, table) {
		return nil, fmt.Errorf("unknown table %q (want one of %s)", table, strings.Join(showDBTables, ", "))
	}

	want := func(name string) bool { return table == "" || table == name }

	counts, err := st.TableCounts(ctx)
	if err != nil {
		return nil, err
	}

	result := &ShowDBResult{DBPath: path, Tables: counts}

	if want("devices") {
		if result.Devices, err = st.Devices(ctx); err != nil {
			return nil, err
		}
	}

	if want("interfaces") {
		if result.Interfaces, err = st.Interfaces(ctx); err != nil {
			return nil, err
		}
	}

	if want("incidents") {
		if result.Incidents, err = st.Incidents(ctx); err != nil {
			return nil, err
		}
	}

	if want("tickets") {
		if result.Tickets, err = st.Tickets(ctx); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func printShowDB(w io.Writer, r *ShowDBResult) {
	fmt.Fprintf(w, "Database: %s\n\n", r.DBPath)

	for _, c := range r.Tables {
		fmt.Fprintf(w, "  %-12s %d\n", c.Table, c.Rows)
	}

	if len(r.Devices) > 0 {
		fmt.Fprintln(w, "\nDevices:")

		for _, d := range r.Devices {
			fmt.Fprintf(w, "  %s  %-14s site=%s os=%s\n", d.ID, d.Hostname, d.Site, d.OSVersion)
		}
	}

	if len(r.Interfaces) > 0 {
		fmt.Fprintln(w, "\nInterfaces:")

		for _, f := range r.Interfaces {
			fmt.Fprintf(w, "  %s %-20s %-4s loss=%.2f errors=%.2f\n",
				f.DeviceID, f.Name, f.Status, f.PacketLoss, f.ErrorRate)
		}
	}

	if len(r.Incidents) > 0 {
		fmt.Fprintln(w, "\nIncidents:")

		for _, inc := range r.Incidents {
			fmt.Fprintf(w, "  %s %s %s  [%s] %s\n",
				inc.ID, inc.DeviceID, inc.Interface, inc.Severity, inc.Summary)
		}
	}

	if len(r.Tickets) > 0 {
		fmt.Fprintln(w, "\nTickets:")

		for _, t := range r.Tickets {
			fmt.Fprintf(w, "  %s -> %s  passed=%t escalated=%t  %s\n",
				t.IncidentID, t.RunbookID, t.ValidationPassed, t.Escalated, t.Notes)
		}
	}
}
