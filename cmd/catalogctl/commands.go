// cmd/catalogctl/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/database"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/repository/memory"
	"github.com/municipal/procurement-backend/internal/seed"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

// catalogServices are the catalog services over the selected store.
type catalogServices struct {
	store  services.CatalogStore
	types  *services.ContractTypeService
	ranges *services.AmountRangeService
	phases *services.PhaseService
	close  func()
}

func (s *catalogServices) seeder() *services.CatalogSeeder {
	return services.NewCatalogSeeder(s.store, s.types, s.ranges, s.phases)
}

func loadCatalog(file string) (*seed.Catalog, error) {
	if file == "" {
		return seed.Default()
	}
	return seed.LoadFile(file)
}

// open connects to the database. In offline mode it uses an in-memory store,
// preloaded from the catalog file when preload is set.
func open(ctx context.Context, flags *globalFlags, preload bool) (*catalogServices, error) {
	if flags.offline {
		svc := newCatalogServices(&memory.Catalog{}, "", func() {})
		if !preload {
			return svc, nil
		}
		catalog, err := loadCatalog(flags.file)
		if err != nil {
			return nil, err
		}
		if _, err := svc.seeder().Seed(ctx, catalog); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		return svc, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return newCatalogServices(repository.NewCatalogRepository(db), cfg.Procurement.DefaultContractType, func() { database.Close(db) }), nil
}

func newCatalogServices(store services.CatalogStore, defaultType string, closeFn func()) *catalogServices {
	return &catalogServices{
		store:  store,
		types:  services.NewContractTypeService(store, nil, defaultType),
		ranges: services.NewAmountRangeService(store, nil),
		phases: services.NewPhaseService(store, nil),
		close:  closeFn,
	}
}

func seedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML catalog, skipping codes that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			catalog, err := loadCatalog(flags.file)
			if err != nil {
				return err
			}

			svc, err := open(ctx, flags, false)
			if err != nil {
				return err
			}
			defer svc.close()

			report, err := svc.seeder().Seed(ctx, catalog)
			if err != nil {
				return err
			}
			printSeedReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report catalog integrity issues; exits 1 when there are any",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer svc.close()

			issues, err := services.NewIntegrityService(svc.store).ValidateCatalogIntegrity(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "catalog OK")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tREFS\tMESSAGE")
			for _, issue := range issues {
				fmt.Fprintf(w, "%s\t%s\t%s\n", issue.Code, strings.Join(issue.Refs, ","), issue.Message)
			}
			w.Flush()
			return errIssues
		},
	}
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	var (
		category string
		amount   float64
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the contract types an amount resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer svc.close()

			res, err := svc.types.ResolveContractType(cmd.Context(), category, amount)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %.2f -> %s\n", res.ObjectCategory, res.Amount, res.ContractType)
			if res.UsedFallback {
				fmt.Fprintln(out, "  (no range matched, configured default used)")
			}
			for i, code := range res.Candidates {
				fmt.Fprintf(out, "  %d. %s\n", i+1, code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Object category (goods, services, works, consulting)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Contract amount")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func sequenceCmd(flags *globalFlags) *cobra.Command {
	var typeCode string

	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Print the effective phase plan of a contract type",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer svc.close()

			plan, err := svc.phases.GetPhaseSequence(cmd.Context(), typeCode)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tPHASE\tCATEGORY\tDAYS\tMANDATORY DOCUMENTS")
			for _, phase := range plan {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					phase.Order, phase.PhaseCode, phase.Category, phase.Duration,
					strings.Join(phase.MandatoryDocuments().Codes(), ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&typeCode, "type", "", "Contract type code")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// tokenCmd issues a bearer token signed with JWT_SECRET, for operators and
// local testing.
func tokenCmd() *cobra.Command {
	var (
		userID       string
		departmentID string
		role         string
		ttlHours     int
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			utils.SetJWTSecret(cfg.JWT.SecretKey)
			utils.SetJWTIssuer(cfg.JWT.Issuer)

			user := uuid.New()
			if userID != "" {
				if user, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			department, err := uuid.Parse(departmentID)
			if err != nil {
				return fmt.Errorf("invalid --department: %w", err)
			}

			token, err := utils.GenerateJWT(user, department, role, ttlHours)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (random when empty)")
	cmd.Flags().StringVar(&departmentID, "department", "", "Department ID")
	cmd.Flags().StringVar(&role, "role", utils.RoleAdmin, "Role claim")
	cmd.Flags().IntVar(&ttlHours, "ttl", 8, "Validity in hours")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}

func printSeedReport(out io.Writer, r *services.SeedReport) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tCREATED\tSKIPPED")
	fmt.Fprintf(w, "contract types\t%d\t%d\n", r.TypesCreated, r.TypesSkipped)
	fmt.Fprintf(w, "amount ranges\t%d\t%d\n", r.RangesCreated, r.RangesSkipped)
	fmt.Fprintf(w, "phases\t%d\t%d\n", r.PhasesCreated, r.PhasesSkipped)
	w.Flush()
}
