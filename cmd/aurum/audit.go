package main

import (
	"fmt"
	"os"
	"time"

	"aurum/internal/audit"

	"github.com/spf13/cobra"
)

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit trail entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "audit.list")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Audit().Query(filter)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No audit entries found.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%s  %-11s  %-14s  %-36s  %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.Action,
				e.TableName,
				e.RecordID,
				e.ActorID,
			)
		}
		return nil
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Export audit trail entries as TSV (stdout when no file given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "audit.export")
		if err != nil {
			return err
		}
		defer a.Close()

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			out = f
		}

		count, err := a.Audit().Export(out, filter)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			fmt.Printf("Exported %d entries to %s\n", count, args[0])
		}
		return nil
	},
}

// filterFromFlags builds an audit filter from the shared query flags.
func filterFromFlags(cmd *cobra.Command) (audit.Filter, error) {
	table, _ := cmd.Flags().GetString("table")
	record, _ := cmd.Flags().GetString("record")
	actorID, _ := cmd.Flags().GetString("actor-id")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	limit, _ := cmd.Flags().GetInt("limit")

	f := audit.Filter{
		TableName: table,
		RecordID:  record,
		ActorID:   actorID,
		Limit:     limit,
	}

	var err error
	if fromStr != "" {
		f.From, err = parseTimeFlag(fromStr)
		if err != nil {
			return f, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if toStr != "" {
		f.To, err = parseTimeFlag(toStr)
		if err != nil {
			return f, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return f, nil
}

// parseTimeFlag accepts YYYY-MM-DD or full RFC3339 timestamps.
func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("table", "", "Filter by table name")
	cmd.Flags().String("record", "", "Filter by record ID")
	cmd.Flags().String("actor-id", "", "Filter by actor")
	cmd.Flags().String("from", "", "Entries at or after this time (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("to", "", "Entries at or before this time (YYYY-MM-DD or RFC3339)")
	cmd.Flags().IntP("limit", "n", 0, "Maximum entries to return (default: server cap)")
}

func init() {
	addFilterFlags(auditListCmd)
	addFilterFlags(auditExportCmd)

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditExportCmd)

	rootCmd.AddCommand(auditCmd)
}
