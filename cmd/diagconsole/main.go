package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", getEnv("DIAG_ADDR", "localhost:8081"), "diagnostics host:port")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/diag"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to %s: %v\nIs the server running with diag.addr set?\n", u.String(), err)
		os.Exit(1)
	}
	defer conn.Close()

	p := tea.NewProgram(NewConsole(u.String(), conn), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
