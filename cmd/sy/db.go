package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/config"
	"github.com/zulandar/sprintyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Sprintyard database",
		Long:  "Creates the database (MySQL/Dolt only) and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for owner %q from %s\n", cfg.Owner, configPath)

	dbc := cfg.Database
	if dbc.Driver == config.DriverMySQL {
		adminDB, err := db.ConnectAdmin(dbc.Host, dbc.Port, dbc.User)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Connected to %s:%d\n", dbc.Host, dbc.Port)
		if err := db.CreateDatabase(adminDB, dbc.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", dbc.Name)
	}

	gormDB, err := db.Open(dbc)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nSprintyard database initialized successfully.")
	return nil
}
