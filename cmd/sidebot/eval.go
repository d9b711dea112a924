package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sidebot/internal/dashboard"
	"sidebot/internal/dataset"
	"sidebot/internal/eval"
	"sidebot/internal/prompt"
	"sidebot/internal/provider"
	"sidebot/internal/query"
	"sidebot/internal/tools"
)

var (
	evalCasesPath   string
	evalConcurrency int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Grade the agent's dashboard queries against reference SQL",
	Long: `Runs each case from a CSV file (input,target columns) against a fresh
session and compares the last update_dashboard query's results with the
target query's results. Row-order and extra-column differences grade as
partial; anything else as incorrect.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalCasesPath, "cases", "", "Cases CSV path (default from config)")
	evalCmd.Flags().IntVar(&evalConcurrency, "concurrency", 0, "Parallel sessions (default from config)")
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	casesPath := cfg.Eval.CasesPath
	if evalCasesPath != "" {
		casesPath = evalCasesPath
	}
	concurrency := cfg.Eval.Concurrency
	if evalConcurrency > 0 {
		concurrency = evalConcurrency
	}

	cases, err := eval.LoadCasesFile(casesPath)
	if err != nil {
		return err
	}

	engine, err := dataset.OpenCSVFile(cfg.Dataset.Path, cfg.Dataset.Table, logger)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	defer engine.Close()

	systemPrompt, err := prompt.System(ctx, engine)
	if err != nil {
		return err
	}

	client, err := provider.NewClient(ctx, cfg.LLM.Provider, cfg.ProviderOptions(), logger)
	if err != nil {
		return err
	}

	store := dashboard.NewStore(engine, logger)
	binder := tools.NewBinder(query.NewGate(engine, logger), store, logger)

	runner := eval.NewRunner(engine, binder, client, systemPrompt, concurrency, logger)
	logger.Info("starting evaluation",
		zap.Int("cases", len(cases)),
		zap.Int("concurrency", concurrency),
		zap.String("model", client.Model()))

	report, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}

	for _, c := range report.Cases {
		verdict := fmt.Sprintf("%s %s", c.Result.Verdict.Letter(), c.Result.Verdict)
		switch c.Result.Verdict {
		case eval.VerdictCorrect:
			verdict = titleStyle.Render(verdict)
		case eval.VerdictIncorrect:
			verdict = errorStyle.Render(verdict)
		}
		fmt.Printf("%-12s %s\n", verdict, c.Case.Input)
		fmt.Printf("             %s\n", mutedStyle.Render(c.Result.Explanation))
		if c.LastQuery != "" {
			fmt.Printf("             %s\n", mutedStyle.Render(c.LastQuery))
		}
	}
	fmt.Printf("\nAccuracy: %.1f%% over %d cases\n", report.Accuracy()*100, len(report.Cases))
	return nil
}
