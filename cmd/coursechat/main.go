package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"coursechat/config"
	srv "coursechat/internal/server"
)

func main() {
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "coursechat", Short: "Question answering over course materials"}
	root.AddCommand(serveCMD(), ingestCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml)")
	return serve
}

func ingestCMD() *cobra.Command {
	var cfgPath string
	var folder string
	var ingest = &cobra.Command{
		Use:   "ingest",
		Short: "Load course documents into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if folder != "" {
				cfg.Documents.Folder = folder
			}
			logger := log.New(os.Stdout, "[INGEST] ", log.LstdFlags)
			sys, _, err := srv.BuildSystem(cfg, logger)
			if err != nil {
				return err
			}
			report, err := sys.AddCourseFolder(context.Background(), cfg.Documents.Folder)
			if err != nil {
				return err
			}
			fmt.Printf("added %d courses (%d chunks) from %s\n",
				report.CoursesAdded, report.ChunksAdded, cfg.Documents.Folder)
			for _, f := range report.Failures {
				fmt.Printf("failed: %s: %v\n", f.File, f.Err)
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d documents failed to ingest", len(report.Failures))
			}
			return nil
		},
	}
	ingest.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml)")
	ingest.Flags().StringVar(&folder, "folder", "", "documents folder (overrides config)")
	return ingest
}
