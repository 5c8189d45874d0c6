package main

import (
	"fmt"
	"io"

	"github.com/cadreapp/cadre/internal/db"
	"github.com/cadreapp/cadre/internal/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm/clause"
)

func newSeedCmd() *cobra.Command {
	var configPath string
	var adminEmail string
	var adminName string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the default permission matrix and optionally a first admin",
		Long: `Upserts the default role→permission matrix. With --admin-email an
admin user is created as well (idempotent on the email).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.OutOrStdout(), configPath, adminEmail, adminName)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "email of the first admin user to create")
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin", "name of the first admin user")
	return cmd
}

func runSeed(out io.Writer, configPath, adminEmail, adminName string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedPermissions(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Permissions seeded.")

	if adminEmail != "" {
		id, err := models.GenerateID("usr")
		if err != nil {
			return err
		}
		admin := models.User{
			ID:     id,
			Name:   adminName,
			Email:  adminEmail,
			Role:   models.RoleAdmin,
			Active: true,
		}
		result := gormDB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&admin)
		if result.Error != nil {
			return fmt.Errorf("seed admin %s: %w", adminEmail, result.Error)
		}
		fmt.Fprintf(out, "Admin user %s ready.\n", adminEmail)
	}
	return nil
}
