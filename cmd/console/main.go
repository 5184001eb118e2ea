package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/interrogation-engine/internal/config"
	"github.com/jwebster45206/interrogation-engine/internal/logger"
	"github.com/jwebster45206/interrogation-engine/internal/services"
	"github.com/jwebster45206/interrogation-engine/internal/storage"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/question"
	"github.com/jwebster45206/interrogation-engine/pkg/textfilter"
)

// The console runs the engine in-process, so it needs neither the API nor
// Redis. Logs go to a file because the terminal belongs to the UI.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(getEnv("CONSOLE_LOG_FILE", "console.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.SetupWriter(cfg, logFile)

	orchestrator, err := setup(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(orchestrator),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func setup(cfg *config.Config, log *slog.Logger) (*interrogation.Orchestrator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	kase, err := storage.NewCaseDir(cfg.DataDir, log).GetCase(ctx, cfg.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load case %q: %w", cfg.CaseID, err)
	}
	if problems := kase.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("case %q is invalid: %v", cfg.CaseID, problems)
	}

	llm, err := services.NewLLMService(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM service: %w\nTry: LLM_PROVIDER=offline", err)
	}
	if err := llm.InitModel(ctx, cfg.ModelName); err != nil {
		return nil, fmt.Errorf("failed to initialize LLM model %q: %w", cfg.ModelName, err)
	}

	opts := []interrogation.Option{
		interrogation.WithNormalizer(question.New().WithBannedTerms(cfg.BannedTerms)),
		interrogation.WithTimeout(cfg.TurnTimeout),
		interrogation.WithLogger(log.With("case_id", kase.ID)),
	}
	if textfilter.ShouldFilter(cfg.ContentRating) {
		opts = append(opts, interrogation.WithReplyFilter(textfilter.New(cfg.BannedTerms...).Clean))
	}
	return interrogation.New(kase, llm, opts...), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
