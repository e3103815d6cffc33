package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/store"
)

func main() {
	catalogPath := flag.String("catalog", "", "tile catalog (default: built-in)")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for push")
	prefix := flag.String("prefix", "tileworld", "Redis key prefix for push")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		printUsage()
		os.Exit(1)
	}
	cmd, path := args[0], args[1]

	log := logger.New(getEnv("LOG_LEVEL", "warn"), "text")
	log.SetOutput(os.Stderr)

	cat := maps.DefaultCatalog()
	if *catalogPath != "" {
		var err error
		if cat, err = maps.LoadCatalog(*catalogPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	t := &tools{out: os.Stdout, cat: cat, log: log}

	switch cmd {
	case "validate":
		os.Exit(t.validate(path))
	case "viz":
		os.Exit(t.vizFile(path))
	case "stats":
		os.Exit(t.statsFile(path))
	case "all":
		os.Exit(t.all(path))
	case "push":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		st := store.New(*redisAddr, *prefix, log)
		defer st.Close()
		if err := st.WaitForConnection(ctx, 5, 500*time.Millisecond); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(t.push(ctx, st, path))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: scenetools [-catalog file] [-redis addr] <command> <path>

Commands:
  validate <scenes-dir>   Validate all scenes in directory
  viz      <scene-file>   Render a scene's walkability as colored text
  stats    <scene-file>   Show item distribution and walkable %
  all      <scenes-dir>   Run validate + viz + stats for all scenes
  push     <scenes-dir>   Validate, then store every scene in Redis`)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
