package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/omarkamali/cohort/internal/api"
	"github.com/omarkamali/cohort/internal/cluster"
	"github.com/omarkamali/cohort/internal/config"
	"github.com/omarkamali/cohort/internal/ingest"
	"github.com/omarkamali/cohort/internal/report"
	"github.com/omarkamali/cohort/internal/storage"
	"github.com/omarkamali/cohort/internal/survey"
	"github.com/omarkamali/cohort/internal/util"
)

// Version information set by ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var AppConfig *config.Config // Global config instance

var rootCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Cohort groups survey respondents by their answers.",
	Long:  `A mixed-type clustering engine for survey answers: numeric, ordinal, categorical and free-text questions, swept over k with multi-restart selection.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = util.Logger // Ensure logger is initialized
		if cmd.Name() == "init" || cmd.Name() == "version" {
			slog.Debug("Skipping configuration loading", "command", cmd.Name())
			return nil
		}

		configPath, _ := cmd.Flags().GetString("config")
		slog.Debug("Loading configuration", "path", configPath)
		loadedCfg, err := config.Load(configPath, "")
		if err != nil {
			wrappedErr := util.WrapError(err, "Failed to load configuration", slog.String("config_path", configPath))
			var unknownFieldErr *config.ErrUnknownField
			if errors.As(err, &unknownFieldErr) {
				util.LogError(util.Logger, util.WrapError(wrappedErr, "Configuration contains unknown fields. Exit 78."))
				os.Exit(78)
			} else {
				util.LogError(util.Logger, wrappedErr)
				os.Exit(1)
			}
		}
		AppConfig = loadedCfg
		slog.Info("Configuration loaded and validated successfully")
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		slog.Info("Welcome to Cohort! Use -h or --help for available commands.")
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Cohort configuration file.",
	Long:  `Creates a new cohort.yml configuration file in the current directory with default values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("file")
		if err := config.WriteDefaultConfig(configPath); err != nil {
			wrappedErr := util.WrapError(err, "Failed to write default config", slog.String("path", configPath))
			util.LogError(util.Logger, wrappedErr)
			return wrappedErr
		}
		slog.Info("Default configuration written", "path", configPath)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster the respondents of one survey.",
	Long:  `Loads a survey definition and an answer file, sweeps k with the configured algorithm and prints one best result per k.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AppConfig == nil {
			cfgErr := util.NewError("Configuration not loaded before run command")
			util.LogError(util.Logger, cfgErr)
			return cfgErr
		}

		surveyPath, _ := cmd.Flags().GetString("survey")
		answersPath, _ := cmd.Flags().GetString("answers")
		algorithm, _ := cmd.Flags().GetString("algorithm")
		kMax, _ := cmd.Flags().GetInt("k-max")
		maxIter, _ := cmd.Flags().GetInt("max-iter")

		if algorithm == "" {
			algorithm = AppConfig.Engine.Algorithm
		}
		if kMax == 0 {
			kMax = AppConfig.Engine.KMax
		}
		if maxIter == 0 {
			maxIter = AppConfig.Engine.MaxIter
		}

		ctx, cancel := signalContext()
		defer cancel()

		store, err := openStore(AppConfig)
		if err != nil {
			return util.WrapError(err, "Failed to open result store")
		}
		defer store.Close()

		return clusterFile(ctx, store, surveyPath, answersPath, algorithm, kMax, maxIter, true)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Cluster every answer file matched by the data configuration.",
	Long:  `Crawls the working directory with the include/exclude patterns from cohort.yml, pairs each answer file with its survey definition and clusters it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AppConfig == nil {
			cfgErr := util.NewError("Configuration not loaded before batch command")
			util.LogError(util.Logger, cfgErr)
			return cfgErr
		}

		rootDir, err := os.Getwd()
		if err != nil {
			return util.WrapError(err, "Failed to get working directory for batch run")
		}

		ctx, cancel := signalContext()
		defer cancel()

		store, err := openStore(AppConfig)
		if err != nil {
			return util.WrapError(err, "Failed to open result store")
		}
		defer store.Close()

		files, err := ingest.DiscoverAnswerFiles(ctx, rootDir, AppConfig.Data)
		if err != nil {
			return util.WrapError(err, "Batch run failed during answer file discovery")
		}

		var processed int
		for _, relPath := range files {
			absPath := filepath.Join(rootDir, relPath)
			// Answer files pair with <survey_dir>/<basename>.yml by convention.
			base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
			surveyPath := filepath.Join(AppConfig.Data.SurveyDir, base+".yml")

			err := clusterFile(ctx, store, surveyPath, absPath,
				AppConfig.Engine.Algorithm, AppConfig.Engine.KMax, AppConfig.Engine.MaxIter, false)
			if err != nil {
				if errors.Is(err, cluster.ErrCancelled) {
					return err
				}
				util.LogError(util.Logger, util.WrapError(err, "Failed to cluster answer file",
					slog.String("path", relPath)))
				continue
			}
			processed++
		}

		slog.Info("Batch run completed.", "files_processed", processed)
		return nil
	},
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Cohort clustering server.",
	Long:  `Starts the HTTP server exposing the clustering API and stored results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AppConfig == nil {
			cfgErr := util.NewError("Configuration not loaded before server command")
			util.LogError(util.Logger, cfgErr)
			return cfgErr
		}

		slog.Info("Starting Cohort server...", "host", AppConfig.Server.Host, "port", AppConfig.Server.Port)

		store, err := openStore(AppConfig)
		if err != nil {
			wrappedErr := util.WrapError(err, "Failed to open result store")
			util.LogError(util.Logger, wrappedErr)
			return wrappedErr
		}
		defer store.Close()

		server := api.NewServer(AppConfig, store)

		ctx, cancel := signalContext()
		defer cancel()

		if err := server.Start(ctx); err != nil {
			wrappedErr := util.WrapError(err, "Server failed to start")
			util.LogError(util.Logger, wrappedErr)
			return wrappedErr
		}

		slog.Info("Server stopped gracefully")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build commit and date.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Cohort %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// clusterFile loads one (survey, answers) pair, sweeps it and persists the
// results. When print is set the result list goes to stdout as indented JSON.
func clusterFile(ctx context.Context, store storage.ResultStore, surveyPath, answersPath, algorithm string, kMax, maxIter int, print bool) error {
	sv, err := ingest.LoadSurvey(surveyPath)
	if err != nil {
		return util.WrapError(err, "Failed to load survey definition", slog.String("path", surveyPath))
	}

	// Downstream loaders log through the context, so their lines carry the
	// survey and algorithm. The engine logs through the global logger.
	ctx = util.WithFields(ctx, map[string]interface{}{
		"survey":    sv.ID,
		"algorithm": algorithm,
	})

	loader := ingest.LoaderFor(answersPath, AppConfig.Data)
	if loader == nil {
		return util.NewError(fmt.Sprintf("Unsupported answer file format: %s", answersPath))
	}
	respondents, err := loader.Load(ctx, sv, answersPath)
	if err != nil {
		return util.WrapError(err, "Failed to load answers", slog.String("path", answersPath))
	}

	opts := &cluster.Options{
		Restarts:   AppConfig.Engine.Restarts,
		SeedStride: AppConfig.Engine.SeedStride,
	}
	results, err := cluster.Sweep(ctx, sv, respondents, sv.IndexResolver(), algorithm, kMax, maxIter, opts)
	if err != nil {
		return err
	}

	for _, res := range results {
		if _, err := store.Save(ctx, res); err != nil {
			util.LogError(util.Logger, util.WrapError(err, "Failed to persist result",
				slog.String("survey", res.SurveyID)))
		}
	}

	if print {
		out := struct {
			Results  []cluster.Result `json:"results"`
			Best     *cluster.Result  `json:"best,omitempty"`
			TopTerms map[int][]string `json:"top_terms,omitempty"`
		}{Results: results}
		if best, ok := cluster.Best(results); ok {
			out.Best = &best
			out.TopTerms = bestTerms(sv, respondents, &best)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}

	slog.Info("Survey clustered", "survey", sv.ID, "respondents", len(respondents), "results", len(results))
	return nil
}

// bestTerms summarizes the winning result's free-text columns. Failures
// degrade to no summary; the clustering result stands on its own.
func bestTerms(sv *survey.Survey, respondents []survey.Respondent, best *cluster.Result) map[int][]string {
	schema, err := cluster.BuildSchema(sv)
	if err != nil {
		return nil
	}
	vectors, err := cluster.BuildVectors(schema, respondents, sv.IndexResolver())
	if err != nil {
		return nil
	}
	byUser := make(map[string]int)
	for clusterID, users := range best.Groups {
		for _, u := range users {
			byUser[u] = clusterID
		}
	}
	labels := make([]int, len(respondents))
	for i, r := range respondents {
		labels[i] = byUser[r.UserID]
	}
	terms, err := report.TopTerms(schema, vectors, labels, best.K, AppConfig.Engine.TopTerms)
	if err != nil || len(terms) == 0 {
		return nil
	}
	return terms
}

// openStore builds the configured result store.
func openStore(cfg *config.Config) (storage.ResultStore, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return storage.NewSQLiteResultStore(cfg.Storage.Path)
	case "memory", "":
		return storage.NewMemoryResultStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping...")
		cancel()
	}()
	return ctx, cancel
}

func init() {
	// Logger is initialized by importing internal/util. Environment files
	// load before cobra parses anything.
	_ = godotenv.Load()

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)

	initCmd.Flags().StringP("file", "f", config.DefaultConfigPath, "Path to write the configuration file")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Path to the configuration file")

	runCmd.Flags().String("survey", "", "Path to the survey definition YAML")
	runCmd.Flags().String("answers", "", "Path to the respondent answer file")
	runCmd.Flags().String("algorithm", "", "Clustering algorithm: LLOYD, SEEDED_LLOYD or MEDOID")
	runCmd.Flags().Int("k-max", 0, "Largest cluster count to sweep")
	runCmd.Flags().Int("max-iter", 0, "Iteration cap per run")
	_ = runCmd.MarkFlagRequired("survey")
	_ = runCmd.MarkFlagRequired("answers")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, but we log it with our structured format.
		if _, ok := err.(*util.CohortError); !ok {
			err = util.WrapError(err, "Command execution failed")
		}
		util.LogError(util.Logger, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
