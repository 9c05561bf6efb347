package main

import (
	"fmt"

	"aurum/internal/backup"

	"github.com/spf13/cobra"
)

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a snapshot of the live database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup.create")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, err := a.CreateBackup(string(backup.KindManual))
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Created %s (%s)\n", artifact.Filename, backup.HumanSize(artifact.SizeBytes))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup.list")
		if err != nil {
			return err
		}
		defer a.Close()

		artifacts, err := a.ListArtifacts()
		if err != nil {
			return err
		}

		if len(artifacts) == 0 {
			fmt.Println("No snapshots recorded.")
			return nil
		}

		for _, art := range artifacts {
			sealed := ""
			if art.Sealed {
				sealed = "  [sealed]"
			}
			modified := "-"
			if mt := art.ModTime(); !mt.IsZero() {
				modified = mt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  %-19s  %-19s  %9s  %s%s\n",
				art.CreatedAt.Format("2006-01-02 15:04:05"),
				modified,
				art.Kind,
				backup.HumanSize(art.SizeBytes),
				art.Filename,
				sealed,
			)
		}
		return nil
	},
}

var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup.stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Snapshots: %d\n", stats.Count)
		fmt.Printf("Total:     %s\n", backup.HumanSize(stats.TotalBytes))
		fmt.Printf("Average:   %s\n", backup.HumanSize(stats.AverageBytes))
		if stats.Count > 0 {
			fmt.Printf("Oldest:    %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
			fmt.Printf("Newest:    %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots beyond the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup.prune")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.Prune()
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		fmt.Printf("Deleted %d snapshot(s)\n", deleted)
		return nil
	},
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify [FILENAME]",
	Short: "Verify snapshot integrity (all snapshots when no filename given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "backup.verify")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.SealingConfigured() {
			passphrase, err = promptPassphrase(false)
			if err != nil {
				return err
			}
		}

		if len(args) == 1 {
			if err := a.VerifyArtifact(args[0], passphrase); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Printf("%s: OK\n", args[0])
			return nil
		}

		report, err := a.VerifyAll(passphrase)
		if err != nil {
			return err
		}

		for _, name := range report.Valid {
			fmt.Printf("%s: OK\n", name)
		}
		for _, name := range report.Corrupted {
			fmt.Printf("%s: CORRUPT\n", name)
		}
		if report.Corrective != nil {
			fmt.Printf("Corrective snapshot taken: %s\n", report.Corrective.Filename)
		}
		if len(report.Corrupted) > 0 {
			return fmt.Errorf("%d snapshot(s) failed verification", len(report.Corrupted))
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore FILENAME",
	Short: "Replace the live database with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetString("confirm")

		a, err := newApp(cmd, "restore")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.SealingConfigured() {
			passphrase, err = promptPassphrase(false)
			if err != nil {
				return err
			}
		}

		result, err := a.Restore(args[0], confirm, passphrase)
		if err != nil {
			if result != nil && result.State == backup.StateRolledBack {
				fmt.Printf("Restore rolled back; safety snapshot: %s\n", result.SafetyArtifact.Filename)
			}
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %s\n", args[0])
		fmt.Printf("Safety snapshot: %s\n", result.SafetyArtifact.Filename)
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupStatsCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupCmd.AddCommand(backupVerifyCmd)

	restoreCmd.Flags().String("confirm", "", fmt.Sprintf("Confirmation token; must be %q", backup.ConfirmationToken))

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
