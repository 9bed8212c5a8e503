package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardiomon/api/internal/config"
	"github.com/cardiomon/api/internal/domain/monitoring"
	"github.com/cardiomon/api/internal/domain/scoring"
	"github.com/cardiomon/api/internal/platform/auth"
	"github.com/cardiomon/api/internal/platform/db"
	"github.com/cardiomon/api/migrations"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardiomon-server",
		Short:         "Cardiac self-care monitoring API server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(scoreCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context) (*config.Config, *db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, migrator, closePool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, migrator, closePool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// tokenCmd signs a bearer token with AUTH_SIGNING_KEY for local testing.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			patientID, _ := cmd.Flags().GetInt64("patient-id")
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if subject == "" {
				subject = role
			}
			access := auth.AccessContext{Role: auth.Role(role), PatientID: patientID, UserID: subject}
			tok, err := auth.IssueToken(jwtConfig(cfg), access, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("role", string(auth.RolePatient), "Token role (admin or patient)")
	cmd.Flags().Int64("patient-id", 0, "Patient id bound to a patient token")
	cmd.Flags().String("subject", "", "Token subject (defaults to the role)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// scoreCmd scores one payload offline. Diet payloads are scored from the
// macronutrient values given; food items are not sent for estimation.
func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a monitoring payload without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, _ := cmd.Flags().GetString("domain")
			file, _ := cmd.Flags().GetString("file")
			weight, _ := cmd.Flags().GetFloat64("weight")
			age, _ := cmd.Flags().GetInt("age")

			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			p, err := monitoring.DecodePayload(monitoring.Domain(domain), data)
			if err != nil {
				return err
			}
			score := monitoring.Score(p, monitoring.PatientContext{WeightKg: weight, Age: age})
			out := struct {
				Domain   string           `json:"domain"`
				Score    float64          `json:"score"`
				Category scoring.Category `json:"category"`
			}{domain, score, scoring.CategoryFor(score)}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().String("domain", "", "diet, sleep, physical_activity or medication")
	cmd.Flags().String("file", "-", "Payload JSON file (- for stdin)")
	cmd.Flags().Float64("weight", 1, "Patient weight in kg")
	cmd.Flags().Int("age", 0, "Patient age in years")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}
