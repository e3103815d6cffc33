package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tileworld/internal/logger"
	"tileworld/internal/maps"
	"tileworld/internal/store"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed (0 = random)")
	size := flag.String("size", "64x48", "scene size as WxH")
	id := flag.String("id", "wilderness", "scene id")
	name := flag.String("name", "Wilderness", "scene name")
	catalogPath := flag.String("catalog", "", "tile catalog (default: built-in)")
	lamps := flag.Int("lamps", 6, "number of lamp posts")
	out := flag.String("out", "", "output file (default: stdout)")
	redisAddr := flag.String("redis", "", "also store the scene in Redis at this address")
	prefix := flag.String("prefix", "tileworld", "Redis key prefix")
	flag.Parse()

	log := logger.New(getEnv("LOG_LEVEL", "info"), "text")
	log.SetOutput(os.Stderr)

	w, h, err := parseSize(*size)
	if err != nil {
		log.WithError(err).Fatal("Invalid size")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	cat := maps.DefaultCatalog()
	if *catalogPath != "" {
		if cat, err = maps.LoadCatalog(*catalogPath); err != nil {
			log.WithError(err).Fatal("Could not load catalog")
		}
	}
	pal, err := paletteFrom(cat)
	if err != nil {
		log.WithError(err).Fatal("Catalog cannot drive the generator")
	}

	log.Infof("Generating %dx%d scene %q (seed %d)", w, h, *id, *seed)
	room := generate(params{ID: *id, Name: *name, Width: w, Height: h, Seed: *seed, Lamps: *lamps}, pal, cat, log)

	data, err := maps.MarshalRoom(room)
	if err != nil {
		log.WithError(err).Fatal("Could not encode scene")
	}
	if *out == "" {
		os.Stdout.Write(append(data, '\n'))
	} else {
		if err := os.WriteFile(*out, append(data, '\n'), 0644); err != nil {
			log.WithError(err).Fatal("Could not write scene")
		}
		log.Infof("Wrote %s (%d bytes)", *out, len(data))
	}

	if *redisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st := store.New(*redisAddr, *prefix, log)
		defer st.Close()
		if err := st.WaitForConnection(ctx, 5, 500*time.Millisecond); err != nil {
			log.WithError(err).Fatal("Redis unavailable")
		}
		if err := st.SaveScene(ctx, room); err != nil {
			log.WithError(err).Fatal("Could not store scene")
		}
		log.WithField("scene", room.SceneID).Info("Scene stored in Redis")
	}

	grid := maps.BuildOccupancy(room, cat, log)
	total := w * h
	fmt.Fprintf(os.Stderr, "Items: %d, blocked: %d/%d (%.1f%%), spawn (%d,%d)\n",
		len(room.Items), grid.BlockedCount(), total,
		float64(grid.BlockedCount())/float64(total)*100, room.Spawn.X, room.Spawn.Y)
}

func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w < 10 {
		return 0, 0, fmt.Errorf("invalid width %q (minimum 10)", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h < 10 {
		return 0, 0, fmt.Errorf("invalid height %q (minimum 10)", parts[1])
	}
	return w, h, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
