package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"triagedesk/internal/api"
	"triagedesk/internal/config"
	"triagedesk/internal/logging"
	"triagedesk/internal/store"
	"triagedesk/internal/triage"
	"triagedesk/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, "triagedesk.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	drafts := triage.NewDrafts(db, log)
	if err := drafts.Load(ctx); err != nil {
		log.Warn("load drafts", zap.Error(err))
	}
	state := triage.NewState(drafts)

	if cached, err := db.LoadAssignments(ctx); err != nil {
		log.Warn("load cached assignments", zap.Error(err))
	} else if len(cached) > 0 {
		state.SetAssignments(cached)
	}

	threshold, err := db.Threshold(ctx, cfg.ConfidenceThreshold)
	if err != nil {
		log.Warn("load threshold", zap.Error(err))
		threshold = cfg.ConfidenceThreshold
	}

	client := api.NewClient(cfg.BackendURL, cfg.RequestTimeout, log)

	appModel := tui.NewAppModel(client, state, db, cfg, threshold, log)
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*tui.AppModel); ok && m.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", m.Err)
		os.Exit(1)
	}
}
