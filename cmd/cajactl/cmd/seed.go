package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cajaflow/internal/infra"
	"cajaflow/internal/middleware"
	"cajaflow/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	seedName     string
	seedTimezone string
	seedUser     string
	seedEmail    string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo business, an owner membership and a few payments",
	Long: `seed migrates the schema, then inserts a demo business, an owner
membership for --user and three completed payments (two cash, one transfer)
stamped one minute in the past. Prints the generated ids as JSON.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedName, "name", "Negocio demo", "business name")
	seedCmd.Flags().StringVar(&seedTimezone, "timezone", "America/Argentina/Buenos_Aires", "business IANA timezone")
	seedCmd.Flags().StringVar(&seedUser, "user", "", "owner user id (generated when empty)")
	seedCmd.Flags().StringVar(&seedEmail, "notify", "", "notification email for closing reports")
}

type seedResult struct {
	BusinessID string   `json:"business_id"`
	UserID     string   `json:"user_id"`
	PaymentIDs []string `json:"payment_ids"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	_, db, err := loadDB()
	if err != nil {
		return err
	}
	if err := infra.RunMigrations(db); err != nil {
		return err
	}

	userID := uuid.New()
	if seedUser != "" {
		if userID, err = uuid.Parse(seedUser); err != nil {
			return fmt.Errorf("--user: %w", err)
		}
	}
	if _, err := time.LoadLocation(seedTimezone); err != nil {
		return fmt.Errorf("--timezone: %w", err)
	}

	negocio := model.Business{ID: uuid.New(), Name: seedName, Timezone: seedTimezone}
	if seedEmail != "" {
		negocio.NotificationEmail = &seedEmail
	}
	now := time.Now().UTC()
	pagos := []model.Payment{
		{Amount: decimal.RequireFromString("30.00"), PaymentMethod: model.MetodoEfectivo},
		{Amount: decimal.RequireFromString("15.00"), PaymentMethod: model.MetodoEfectivo},
		{Amount: decimal.RequireFromString("20.00"), PaymentMethod: model.MetodoTransferencia},
	}

	res := seedResult{UserID: userID.String(), BusinessID: negocio.ID.String()}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&negocio).Error; err != nil {
			return err
		}
		member := model.BusinessMember{BusinessID: negocio.ID, UserID: userID, Role: middleware.RolOwner}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		for i := range pagos {
			pagos[i].ID = uuid.New()
			pagos[i].BusinessID = negocio.ID
			pagos[i].Status = model.PagoCompletado
			pagos[i].CreatedAt = now.Add(-time.Minute)
			if err := tx.Create(&pagos[i]).Error; err != nil {
				return err
			}
			res.PaymentIDs = append(res.PaymentIDs, pagos[i].ID.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	log.Info().Str("business_id", res.BusinessID).Str("user_id", res.UserID).Msg("demo data created")
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
