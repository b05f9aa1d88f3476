package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/farmview/farmview-api/internal/calibration"
	"github.com/farmview/farmview-api/internal/damage"
	"github.com/farmview/farmview-api/internal/delivery"
	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/farmview/farmview-api/internal/imagery"
	"github.com/farmview/farmview-api/internal/logging"
	"github.com/farmview/farmview-api/internal/notification"
	"github.com/farmview/farmview-api/internal/pipeline"
	"github.com/farmview/farmview-api/internal/properties"
	"github.com/farmview/farmview-api/internal/store"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func printBanner() {
	fig := figure.NewFigure("FarmView", "isometric1", true)
	color.Cyan(fig.String())
	fmt.Println()
}

func loadProfiles(log *logrus.Logger) *calibration.Table {
	path := properties.CropThresholdPath()
	if _, err := os.Stat(path); err != nil {
		log.Debug("no crop threshold file found, using default thresholds for every crop")
		return nil
	}
	table, err := calibration.LoadTable(path)
	if err != nil {
		log.WithError(err).Fatal("failed to load crop thresholds")
	}
	return table
}

// newService assembles the delivery service with whatever collaborators are
// configured. Mongo and the insurance webhook are optional.
func newService(ctx context.Context, log *logrus.Logger) (*delivery.Service, func(), error) {
	if err := properties.EnsureDirectories(); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	thresholds := damage.Thresholds{
		Damage: properties.DamageThreshold(),
		Severe: properties.SevereDamageThreshold(),
	}
	pl, err := pipeline.New(thresholds, loadProfiles(log))
	if err != nil {
		return nil, nil, err
	}

	svc := &delivery.Service{
		Pipeline: pl,
		Fetcher:  imagery.NewFetcher(log),
		Log:      log,
	}
	cleanup := func() {}

	if properties.MongoURI() != "" {
		st, closeStore, err := connectStore(ctx, log)
		if err != nil {
			return nil, nil, err
		}
		svc.Store = st
		cleanup = closeStore
	}

	if url := properties.InsuranceWebhookURL(); url != "" {
		svc.Notifier = notification.NewInsuranceNotifier(url, properties.InsuranceAPIKey())
	}

	return svc, cleanup, nil
}

func analyzeCmd(log *logrus.Logger) *cobra.Command {
	var (
		farmerID  string
		crop      string
		geojson   string
		fieldID   string
		eventDate string
		insured   float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Assess crop damage for a single field",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var event time.Time
			if eventDate != "" {
				var err error
				event, err = time.Parse("2006-01-02", eventDate)
				if err != nil {
					return fmt.Errorf("invalid --event-date %q, expected YYYY-MM-DD", eventDate)
				}
			}

			polygon, err := geometry.FromGeoJSONFile(geojson, fieldID)
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(ctx, log)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.AnalyzeField(ctx, delivery.FieldRequest{
				FarmerID:      farmerID,
				Crop:          crop,
				Coordinates:   polygon.Coordinates(),
				EventDate:     event,
				InsuredAmount: insured,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Damage: %.1f%%  Risk score: %.1f/10\n", report.Damage.DamagePercent, report.Damage.RiskScore)
			fmt.Printf("Field area: %.2f ha  Damaged area: %.2f ha\n", report.Area.TotalAreaHa, report.Area.DamagedAreaHa)
			if report.EstimatedClaim != nil {
				fmt.Printf("Estimated claim: %.2f\n", *report.EstimatedClaim)
			}
			if report.HeatmapPath != "" {
				fmt.Printf("Damage heatmap: %s\n", report.HeatmapPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&farmerID, "farmer", "", "farmer identifier")
	cmd.Flags().StringVar(&crop, "crop", "", "crop label, selects calibrated thresholds when available")
	cmd.Flags().StringVar(&geojson, "geojson", "", "path to the geojson file holding the field boundary")
	cmd.Flags().StringVar(&fieldID, "field", "", "field_id of the feature inside the geojson file")
	cmd.Flags().StringVar(&eventDate, "event-date", "", "damage event date (YYYY-MM-DD), defaults to today")
	cmd.Flags().Float64Var(&insured, "insured", 0, "insured amount, enables the claim estimate")
	cmd.MarkFlagRequired("farmer")
	cmd.MarkFlagRequired("geojson")
	cmd.MarkFlagRequired("field")

	return cmd
}

func batchCmd(log *logrus.Logger) *cobra.Command {
	var (
		input   string
		output  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Assess every field listed in a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, cleanup, err := newService(ctx, log)
			if err != nil {
				return err
			}
			defer cleanup()

			return svc.RunBatch(ctx, input, output, workers)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "batch input CSV")
	cmd.Flags().StringVar(&output, "output", "", "batch results CSV")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent field analyses")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

// connectStore dials the configured MongoDB, failing when none is set. Used
// by the subcommands that exist purely for persistence.
func connectStore(ctx context.Context, log *logrus.Logger) (*store.Store, func(), error) {
	uri := properties.MongoURI()
	if uri == "" {
		return nil, nil, fmt.Errorf("MONGODB_URI must be set for this command")
	}
	st, err := store.Connect(ctx, uri, properties.MongoDatabase())
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(context.Background()); err != nil {
			log.WithError(err).Warn("failed to close mongodb connection")
		}
	}
	return st, cleanup, nil
}

func registerCmd(log *logrus.Logger) *cobra.Command {
	var (
		farmerID string
		crop     string
		geojson  string
		fieldID  string
		insured  float64
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a field boundary and its insurance coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			polygon, err := geometry.FromGeoJSONFile(geojson, fieldID)
			if err != nil {
				return err
			}

			st, cleanup, err := connectStore(ctx, log)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := st.CreateField(ctx, store.FieldRecord{
				FarmerID:      farmerID,
				Crop:          crop,
				Coordinates:   polygon.Coordinates(),
				AreaHectares:  polygon.AreaHectares(),
				InsuredAmount: insured,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Registered field %s: %.2f ha", id, polygon.AreaHectares())
			if insured > 0 {
				fmt.Printf(", insured for %.2f", insured)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&farmerID, "farmer", "", "farmer identifier")
	cmd.Flags().StringVar(&crop, "crop", "", "crop grown on the field")
	cmd.Flags().StringVar(&geojson, "geojson", "", "path to the geojson file holding the field boundary")
	cmd.Flags().StringVar(&fieldID, "field", "", "field_id of the feature inside the geojson file")
	cmd.Flags().Float64Var(&insured, "insured", 0, "insured amount, used as the default for later analyses")
	cmd.MarkFlagRequired("farmer")
	cmd.MarkFlagRequired("geojson")
	cmd.MarkFlagRequired("field")

	return cmd
}

func printAnalysis(rec store.AnalysisRecord) {
	fmt.Printf("%s  damage %.1f%%  risk %.1f/10  area %.2f ha",
		rec.CreatedAt.Format("2006-01-02 15:04"),
		rec.DamageStatistics.DamagePercent,
		rec.DamageStatistics.RiskScore,
		rec.AreaStatistics.TotalAreaHa,
	)
	if rec.EstimatedClaim != nil {
		fmt.Printf("  claim %.2f", *rec.EstimatedClaim)
	}
	fmt.Println()
}

func historyCmd(log *logrus.Logger) *cobra.Command {
	var (
		farmerID string
		latest   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past damage assessments for a farmer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, cleanup, err := connectStore(ctx, log)
			if err != nil {
				return err
			}
			defer cleanup()

			if latest {
				rec, err := st.LatestAnalysis(ctx, farmerID)
				if err != nil {
					return err
				}
				if rec == nil {
					fmt.Println("No analyses found.")
					return nil
				}
				printAnalysis(*rec)
				return nil
			}

			records, err := st.AnalysesByFarmer(ctx, farmerID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No analyses found.")
				return nil
			}
			for _, rec := range records {
				printAnalysis(rec)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&farmerID, "farmer", "", "farmer identifier")
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the most recent assessment")
	cmd.MarkFlagRequired("farmer")

	return cmd
}

func cropsCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List crops with calibrated damage thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := loadProfiles(log)
			if table == nil {
				fmt.Println("No crop threshold file configured, defaults apply to every crop.")
				return nil
			}
			for _, crop := range table.Crops() {
				fmt.Println("-", crop)
			}
			return nil
		},
	}
}

func main() {
	// A .env file is optional, configuration may come from the environment.
	godotenv.Load()

	log := logging.New(properties.LogLevel())

	root := &cobra.Command{
		Use:          "farmview",
		Short:        "Satellite-based crop damage assessment",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printBanner()
		},
	}
	root.AddCommand(analyzeCmd(log), batchCmd(log), registerCmd(log), historyCmd(log), cropsCmd(log))

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}
