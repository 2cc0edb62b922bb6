package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/client"
	"github.com/ivanskieee/lantern/internal/tui"
)

func main() {
	serverURL := flag.String("server", envOr("LANTERN_SERVER", "http://localhost:8080"), "base URL of the lantern server")
	flag.Parse()

	// the TUI owns the terminal, keep logs out of it
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))

	api := client.NewAPIClient(*serverURL)

	var program *tea.Program
	rec := client.NewReconciler(wsURL(*serverURL), clockwork.NewRealClock(), client.Options{
		OnChange: func() {
			program.Send(tui.RefreshMsg{})
		},
		OnStatus: func(s client.Status) {
			program.Send(tui.StatusMsg{Status: s})
		},
	})

	program = tea.NewProgram(tui.NewModel(api, rec), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	rec.Start(ctx)

	_, err := program.Run()

	cancel()
	rec.Stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func wsURL(serverURL string) string {
	ws := serverURL
	ws = strings.Replace(ws, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimSuffix(ws, "/") + "/ws"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
