package cmd

import (
	"fmt"
	"time"

	"cajaflow/internal/config"
	"cajaflow/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenRol  string
	tokenTTL  time.Duration
)

// tokenCmd mints a bearer token signed with JWT_SECRET. Production tokens come
// from the identity service; this is for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Env == "production" {
			return fmt.Errorf("refusing to mint tokens with APP_ENV=production")
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		if _, err := uuid.Parse(tokenUser); err != nil {
			return fmt.Errorf("--user: %w", err)
		}

		now := time.Now()
		claims := middleware.JWTClaims{
			UserID: tokenUser,
			Rol:    tokenRol,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   tokenUser,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenRol, "rol", middleware.RolOwner, "role: owner | manager | cashier")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
