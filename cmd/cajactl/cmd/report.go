package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cajaflow/internal/repository"
	"cajaflow/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	reportBusiness string
	reportDate     string
	reportFrom     string
	reportTo       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print daily or period cash reports as JSON",
}

var reportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Sessions opened on one day (business timezone)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, businessID, err := reportService()
		if err != nil {
			return err
		}
		date := reportDate
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		out, err := svc.DailyReport(cmd.Context(), uuid.Nil, businessID, date)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var reportPeriodCmd = &cobra.Command{
	Use:   "period",
	Short: "One daily report per day of an inclusive range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportFrom == "" || reportTo == "" {
			return fmt.Errorf("--from and --to are required")
		}
		svc, businessID, err := reportService()
		if err != nil {
			return err
		}
		out, err := svc.PeriodReport(cmd.Context(), uuid.Nil, businessID, reportFrom, reportTo)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportBusiness, "business", "", "business id")
	_ = reportCmd.MarkPersistentFlagRequired("business")

	reportDailyCmd.Flags().StringVar(&reportDate, "date", "", "day as YYYY-MM-DD (default today)")
	reportPeriodCmd.Flags().StringVar(&reportFrom, "from", "", "first day, YYYY-MM-DD")
	reportPeriodCmd.Flags().StringVar(&reportTo, "to", "", "last day, YYYY-MM-DD")

	reportCmd.AddCommand(reportDailyCmd)
	reportCmd.AddCommand(reportPeriodCmd)
}

// reportService builds the report service with no membership check: the
// operator already holds database credentials.
func reportService() (service.ReporteService, uuid.UUID, error) {
	businessID, err := uuid.Parse(reportBusiness)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("--business: %w", err)
	}
	cfg, db, err := loadDB()
	if err != nil {
		return nil, uuid.Nil, err
	}
	svc := service.NewReporteService(
		repository.NewCajaRepository(db),
		repository.NewPagoRepository(db),
		repository.NewNegocioRepository(db),
		service.AllowAll{},
		cfg.ReportTimezone,
	)
	return svc, businessID, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
