package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parley-chat/parley/pkg/client"
	"github.com/parley-chat/parley/pkg/client/ui"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	configPath := flag.String("config", client.DefaultConfigPath(), "Path to config file")
	server := flag.String("server", "", "Server address (host:port, overrides config)")
	statePath := flag.String("state", "", "Path to state database (overrides config)")
	debugLog := flag.String("debug-log", "", "Write debug logs to this file")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Parley %s\n", Version)
		os.Exit(0)
	}

	// Load configuration (creates default if not found)
	config, err := client.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	addr := config.Connection.DefaultServer
	if *server != "" {
		addr = *server
	}

	dbPath := config.Local.StateDB
	if *statePath != "" {
		dbPath = *statePath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create state directory: %v", err)
	}

	var logger *log.Logger
	if *debugLog != "" {
		f, err := os.OpenFile(*debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open debug log: %v", err)
		}
		defer f.Close()
		logger = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	}

	state, err := client.OpenState(dbPath)
	if err != nil {
		log.Fatalf("Failed to open state database: %v", err)
	}
	defer state.Close()

	conn, err := client.NewConnection(addr)
	if err != nil {
		log.Fatalf("Invalid server address %q: %v", addr, err)
	}
	if logger != nil {
		conn.SetLogger(logger)
	}
	if !config.Connection.AutoReconnect {
		conn.DisableAutoReconnect()
	}
	conn.SetMaxReconnectDelay(time.Duration(config.Connection.ReconnectMaxDelaySeconds) * time.Second)

	if err := conn.Connect(); err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer conn.Close()

	model := ui.NewModel(conn, state, ui.Options{
		NotifyDuration:       time.Duration(config.UI.NotifySeconds) * time.Second,
		DesktopNotifications: config.UI.DesktopNotifications,
		Logger:               logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
