package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/periop/statusboard/internal/config"
	"github.com/periop/statusboard/internal/domain/analytics"
	"github.com/periop/statusboard/internal/domain/clinician"
	"github.com/periop/statusboard/internal/domain/status"
	"github.com/periop/statusboard/internal/platform/db"
	"github.com/periop/statusboard/internal/platform/events"
	"github.com/periop/statusboard/internal/platform/export"
	"github.com/periop/statusboard/pkg/dates"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				state := "pending"
				appliedAt := ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision reference data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "statuses",
		Short: "Insert the default perioperative status catalog when it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := status.Seed(ctx, db.NewTransactor(pool), status.NewRepoPG(pool), status.DefaultCatalog())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Status catalog already provisioned; nothing to do.")
				return nil
			}
			fmt.Printf("Inserted %d status(es).\n", n)
			return nil
		},
	})

	clinicianCmd := &cobra.Command{
		Use:   "clinician",
		Short: "Register a clinician that patients can be assigned to",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			c, err := newClinician(name, email, role, time.Now())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := clinician.NewRepoPG(pool).Create(ctx, c); err != nil {
				return err
			}
			fmt.Printf("Created clinician %s (%s).\n", c.Name, c.ID)
			return nil
		},
	}
	clinicianCmd.Flags().String("name", "", "Full name, as referenced by surgeon_name")
	clinicianCmd.Flags().String("email", "", "Unique email address")
	clinicianCmd.Flags().String("role", "surgeon", "Staff role")
	cmd.AddCommand(clinicianCmd)

	return cmd
}

func newClinician(name, email, role string, now time.Time) (*clinician.Clinician, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, fmt.Errorf("--name is required")
	}
	if email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	return &clinician.Clinician{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      strings.TrimSpace(role),
		CreatedAt: now.UTC(),
	}, nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render analytics reports",
	}

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Write the analytics overview spreadsheet to a directory or S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")
			outDir, _ := cmd.Flags().GetString("out")
			toS3, _ := cmd.Flags().GetBool("s3")

			start, err := optionalDay(startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := optionalDay(endFlag)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			sink, err := newSink(ctx, cfg, outDir, toS3)
			if err != nil {
				return err
			}

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := newServices(cfg, pool, nil, events.Nop{}, logger)
			data, w, err := svcs.analytics.OverviewWorkbook(ctx, start, end)
			if err != nil {
				return err
			}
			loc, err := sink.Put(ctx, analytics.ReportName(w), data, export.XLSXContentType)
			if err != nil {
				return err
			}
			logger.Info().Str("location", loc).Time("start", w.Start).Time("end", w.End).Msg("overview exported")
			return nil
		},
	}
	overviewCmd.Flags().String("start", "", "First day of the window (YYYY-MM-DD)")
	overviewCmd.Flags().String("end", "", "Last day of the window (YYYY-MM-DD)")
	overviewCmd.Flags().String("out", ".", "Directory to write the spreadsheet to")
	overviewCmd.Flags().Bool("s3", false, "Upload to EXPORT_S3_BUCKET instead of writing locally")
	cmd.AddCommand(overviewCmd)

	return cmd
}

func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := dates.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newSink(ctx context.Context, cfg *config.Config, dir string, toS3 bool) (export.Sink, error) {
	if !toS3 {
		return export.FileSink{Dir: dir}, nil
	}
	if cfg.ExportS3Bucket == "" {
		return nil, fmt.Errorf("EXPORT_S3_BUCKET is required with --s3")
	}
	return export.NewS3Sink(ctx, cfg.ExportS3Bucket, cfg.ExportS3Prefix)
}
