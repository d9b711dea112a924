package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sidebot/internal/dataset"
	"sidebot/internal/provider"
	"sidebot/internal/session"
	"sidebot/internal/tools"
)

// Case is one evaluation input: a user message and the reference SQL the
// agent's final update_dashboard call should be equivalent to. An empty
// target means the agent is expected not to change the dashboard.
type Case struct {
	Input  string
	Target string
}

// CaseResult is the graded outcome of one case.
type CaseResult struct {
	Case      Case
	LastQuery string
	Result    Result
	Err       error
}

// Report aggregates the graded cases of one run.
type Report struct {
	Cases []CaseResult
}

// Accuracy scores correct as 1, partial as 0.5, incorrect as 0, averaged over
// all cases.
func (r *Report) Accuracy() float64 {
	if len(r.Cases) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Cases {
		switch c.Result.Verdict {
		case VerdictCorrect:
			sum += 1
		case VerdictPartial:
			sum += 0.5
		}
	}
	return sum / float64(len(r.Cases))
}

// LoadCases reads evaluation cases from CSV with an input,target header.
func LoadCases(r io.Reader) ([]Case, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cases: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty case file")
	}

	inputIdx, targetIdx := -1, -1
	for i, name := range records[0] {
		switch name {
		case "input":
			inputIdx = i
		case "target":
			targetIdx = i
		}
	}
	if inputIdx < 0 || targetIdx < 0 {
		return nil, fmt.Errorf("case file must have input and target columns, got %v", records[0])
	}

	cases := make([]Case, 0, len(records)-1)
	for _, rec := range records[1:] {
		cases = append(cases, Case{Input: rec[inputIdx], Target: rec[targetIdx]})
	}
	return cases, nil
}

// LoadCasesFile reads cases from a CSV file on disk.
func LoadCasesFile(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening case file: %w", err)
	}
	defer f.Close()
	return LoadCases(f)
}

// Runner executes evaluation cases, each against a fresh session, and grades
// the last recorded update_dashboard query against the case target.
type Runner struct {
	engine       *dataset.Engine
	binder       *tools.Binder
	client       provider.Client
	systemPrompt string
	concurrency  int
	logger       *zap.Logger
}

// NewRunner creates a runner. Concurrency below 1 defaults to serial.
func NewRunner(engine *dataset.Engine, binder *tools.Binder, client provider.Client, systemPrompt string, concurrency int, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine:       engine,
		binder:       binder,
		client:       client,
		systemPrompt: systemPrompt,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Run grades all cases. Case order is preserved in the report regardless of
// completion order. A provider failure grades its case incorrect instead of
// aborting the run.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	report := &Report{Cases: make([]CaseResult, len(cases))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range cases {
		g.Go(func() error {
			report.Cases[i] = r.runCase(ctx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("evaluation finished",
		zap.Int("cases", len(cases)),
		zap.Float64("accuracy", report.Accuracy()))
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	sess := session.New(r.client, r.systemPrompt, r.binder, r.logger)

	fragments, errc := sess.Stream(ctx, c.Input)
	for range fragments {
	}
	if err := <-errc; err != nil {
		r.logger.Warn("case session failed", zap.String("input", c.Input), zap.Error(err))
		return CaseResult{
			Case:   c,
			Result: Result{VerdictIncorrect, fmt.Sprintf("session failed: %v", err)},
			Err:    err,
		}
	}

	// An empty-string query is the dashboard reset; it counts as no query
	// for grading purposes.
	lastQuery, ok := sess.Recorder().LastQuery()
	hasActual := ok && lastQuery != ""

	result, err := CompareQueries(ctx, r.engine, lastQuery, c.Target, hasActual)
	if err != nil {
		return CaseResult{Case: c, LastQuery: lastQuery, Err: err,
			Result: Result{VerdictIncorrect, err.Error()}}
	}
	return CaseResult{Case: c, LastQuery: lastQuery, Result: result}
}
