package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/autotag/internal/model"
	"github.com/franz/autotag/internal/prompt"
	"github.com/franz/autotag/internal/report"
	"github.com/franz/autotag/internal/store"
	"github.com/franz/autotag/internal/util"
)

// DefaultModel is the vision model used when none is configured
const DefaultModel = "qwen2.5vl:7b"

// setupLogging applies the global verbosity flags
func setupLogging() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// openDatabase opens the tag database named by the global --db flag
func openDatabase() (*store.Store, error) {
	dbPath := viper.GetString("db")
	util.DebugLog("Opening database: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newEventLogger creates the JSONL event logger, degrading to a no-op
// logger when the artifacts directory cannot be written
func newEventLogger() *report.EventLogger {
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

// addModelFlags registers the model selection flags shared by the
// commands that call a vision backend
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", DefaultModel, "vision model name")
	cmd.Flags().String("model-type", "ollama", "model backend: ollama or openai")
	cmd.Flags().String("api-base", "", "base URL for openai-compatible endpoints")
	cmd.Flags().String("api-key", "", "API key for openai-compatible endpoints")
	cmd.Flags().StringP("language", "l", "en", "tag language: "+joinLanguages())
	cmd.Flags().String("prompts", "", "prompt template file (YAML)")
}

func joinLanguages() string {
	out := ""
	for i, l := range prompt.Languages() {
		if i > 0 {
			out += ", "
		}
		out += l
	}
	return out
}

// buildBackend constructs the model backend from command flags and the
// config file
func buildBackend(cmd *cobra.Command) (model.Backend, string, error) {
	language := GetConfigString(cmd, "language")
	if !prompt.IsSupported(language) {
		return nil, "", fmt.Errorf("unsupported language %q (supported: %s)", language, joinLanguages())
	}

	prompts := prompt.Default()
	if promptFile := GetConfigString(cmd, "prompts"); promptFile != "" {
		loaded, err := prompt.Load(promptFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load prompts: %w", err)
		}
		prompts = loaded
	}

	backend, err := model.New(model.Config{
		Kind:      model.Kind(GetConfigString(cmd, "model-type")),
		ModelName: GetConfigString(cmd, "model"),
		Language:  language,
		APIBase:   GetConfigString(cmd, "api-base"),
		APIKey:    GetConfigString(cmd, "api-key"),
		Prompts:   prompts,
	})
	if err != nil {
		return nil, "", err
	}
	return backend, language, nil
}
