package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"leadsdesk/config"
	"leadsdesk/database"
	"leadsdesk/export"
	"leadsdesk/windows"
)

var (
	Version = "1.0.0"

	configDir    string
	verbose      bool
	exportFormat string
	exportOut    string

	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leadsdesk",
		Short: "Browse and edit lead and ticket records one at a time",
		Long: `Leads Desk opens the leads and ticket-system tables of a MySQL/MariaDB
database and shows one record at a time. Fields are saved when they lose focus.

Without a subcommand the desktop window is started.`,
		Version:       Version,
		RunE:          runGUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding the connection files (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	verifyCmd := &cobra.Command{
		Use:       "verify [leads|tickets]",
		Short:     "Check that the stored credentials can connect",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"leads", "tickets"},
		RunE:      runVerify,
	}

	exportCmd := &cobra.Command{
		Use:       "export <leads|tickets>",
		Short:     "Write a connection's table to CSV, JSON or Parquet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"leads", "tickets"},
		RunE:      runExport,
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format (csv, json or parquet)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: <table>.<format>)")

	rootCmd.AddCommand(verifyCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connections() (*config.Connections, error) {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Ignoring .env: %v", err)
	}
	paths, err := config.DefaultPaths(configDir)
	if err != nil {
		return nil, err
	}
	return config.NewConnections(paths), nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	conns, err := connections()
	if err != nil {
		return err
	}
	windows.CreateMainWindow(windows.Options{Connections: conns, Verbose: verbose})
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	conns, err := connections()
	if err != nil {
		return err
	}
	targets := conns.All()
	if len(args) == 1 {
		conn, err := conns.ByName(args[0])
		if err != nil {
			return err
		}
		targets = []*config.Connection{conn}
	}

	failed := 0
	for _, conn := range targets {
		cfg, err := conn.Load()
		if err != nil {
			errorColor.Printf("%-8s %v\n", conn.Name, err)
			failed++
			continue
		}
		if err := cfg.Validate(); err != nil {
			errorColor.Printf("%-8s %v\n", conn.Name, err)
			failed++
			continue
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		err = database.Verify(ctx, cfg)
		cancel()
		if err != nil {
			errorColor.Printf("%-8s %s: %v\n", conn.Name, cfg, err)
			failed++
			continue
		}
		successColor.Printf("%-8s %s ok\n", conn.Name, cfg)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d connections failed", failed, len(targets))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	conns, err := connections()
	if err != nil {
		return err
	}
	conn, err := conns.ByName(args[0])
	if err != nil {
		return err
	}
	cfg, err := conn.Load()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	db.Verbose = verbose

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	infoColor.Printf("Reading %s from %s\n", conn.Table, cfg)
	schema, recs, err := database.Load(ctx, db, database.NewSchemaCache(), conn.Table)
	if err != nil {
		return err
	}
	table, err := export.Table(schema, recs)
	if err != nil {
		return err
	}
	defer table.Release()

	out := exportOut
	if out == "" {
		out = conn.Table + format.Extension()
	}
	if err := export.Write(table, format, out); err != nil {
		return err
	}
	successColor.Printf("Exported %d records to %s\n", table.NumRows(), filepath.Clean(out))
	return nil
}
