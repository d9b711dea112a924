package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"sidebot/internal/dashboard"
	"sidebot/internal/dataset"
	"sidebot/internal/prompt"
	"sidebot/internal/provider"
	"sidebot/internal/query"
	"sidebot/internal/session"
	"sidebot/internal/tools"
)

const greeting = `Hello! I can help you explore and analyze your bird sightings data. I can
filter, sort, calculate statistics, and answer questions about birds or
locations. For transparency, I'll always show you the SQL used.

Try "Show only American Robins", or "reset" to clear the current filter.
Type /dashboard to see the current view, /fork to branch the conversation,
/quit to exit.`

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	promptStyle = lipgloss.NewStyle().Bold(true)
)

// runChat loads the dataset, builds the primary session, and runs the
// read-stream-print loop until EOF or /quit.
func runChat(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	sess := session.New(client, systemPrompt, binder, logger)

	logger.Info("chat ready",
		zap.String("provider", client.Name()),
		zap.String("model", client.Model()),
		zap.String("table", engine.Table()))

	fmt.Println(greeting)
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "/exit":
			return nil
		case "/dashboard":
			fmt.Println(renderDashboard(ctx, store))
			continue
		case "/fork":
			sess = sess.Fork()
			fmt.Println(mutedStyle.Render("Forked the conversation. The dashboard stays shared; new turns are independent."))
			continue
		}

		fragments, errc := sess.Stream(ctx, input)
		for f := range fragments {
			fmt.Print(f)
		}
		fmt.Println()
		if err := <-errc; err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		fmt.Println(renderDashboard(ctx, store))
	}
	return scanner.Err()
}

// renderDashboard prints a snapshot of the current view state and its derived
// aggregates.
func renderDashboard(ctx context.Context, store *dashboard.Store) string {
	state := store.Read()

	var b strings.Builder
	title := state.Title
	if title == "" {
		title = "All data"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if state.Query != "" {
		b.WriteString(mutedStyle.Render(state.Query) + "\n")
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		return b.String() + errorStyle.Render(fmt.Sprintf("dashboard unavailable: %v", err))
	}
	fmt.Fprintf(&b, "%s %d   %s %d   %s %s\n",
		labelStyle.Render("Sightings:"), summary.Sightings,
		labelStyle.Render("Birds:"), summary.TotalBirds,
		labelStyle.Render("Most common:"), orDash(summary.MostCommon))

	top, err := store.TopSpecies(ctx, 5, dashboard.SortMost)
	if err != nil || len(top) == 0 {
		return b.String()
	}
	b.WriteString(labelStyle.Render("Top species:") + "\n")
	for _, sc := range top {
		fmt.Fprintf(&b, "  %-25s %d\n", sc.Name, sc.Count)
	}

	bins, err := store.LocationBins(ctx, 12, dashboard.MetricBirds)
	if err == nil && len(bins) > 0 {
		if len(bins) > 3 {
			bins = bins[:3]
		}
		b.WriteString(labelStyle.Render("Hotspots:") + "\n")
		for _, bin := range bins {
			fmt.Fprintf(&b, "  %.3f, %.3f%s\n", bin.Latitude, bin.Longitude,
				mutedStyle.Render(fmt.Sprintf("  (%.0f birds)", bin.Value)))
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
