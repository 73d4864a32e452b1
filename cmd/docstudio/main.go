package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/auth"
	"github.com/nkamath/docstudio/internal/config"
	"github.com/nkamath/docstudio/internal/query"
	"github.com/nkamath/docstudio/internal/recorder"
	"github.com/nkamath/docstudio/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (default: user config dir)")
	baseURL := flag.String("base-url", "", "override the backend base URL")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	path := *configPath
	if path == "" {
		resolved, err := config.DefaultPath()
		if err != nil {
			fmt.Println("failed to resolve config path:", err)
			os.Exit(1)
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}

	// The jobs bus logs through the standard logger; keep it out of the
	// terminal the TUI owns.
	if logFile, err := tea.LogToFile(os.DevNull, ""); err == nil {
		defer logFile.Close()
	}

	tokens, err := auth.NewStore("")
	if err != nil {
		fmt.Println("failed to open token store:", err)
		os.Exit(1)
	}
	client := api.NewClient(cfg.API.BaseURL, tokens, &http.Client{Timeout: cfg.API.Timeout})

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Client:       client,
			Store:        query.NewStore(cfg.API.Timeout),
			Auth:         tokens,
			Recorder:     recorder.New(),
			Settings:     cfg,
			SettingsPath: path,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
