// Package app wires the shared startup pieces of the binaries: the tile
// catalog, the sprite sheet and the scene loader.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tileworld/internal/config"
	"tileworld/internal/game"
	"tileworld/internal/maps"
	"tileworld/internal/render"
	"tileworld/internal/store"
)

// placeholderFrames is the size of the generated sheet used when the sprite
// sheet is missing.
const placeholderFrames = 64

// Catalog loads the tile catalog, falling back to the built-in one.
func Catalog(cfg config.Config, log logrus.FieldLogger) *maps.Catalog {
	cat, err := maps.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.CatalogPath).Warn("Using built-in tile catalog")
		return maps.DefaultCatalog()
	}
	log.WithField("tiles", cat.Len()).Info("Tile catalog loaded")
	return cat
}

// Sheet loads the sprite sheet named by cfg.SheetPath or a placeholder.
func Sheet(cfg config.Config, log logrus.FieldLogger) *render.Sheet {
	dir, file := filepath.Split(cfg.SheetPath)
	name := strings.TrimSuffix(file, filepath.Ext(file))
	return render.NewAssets(dir, log).LoadOrPlaceholder(name, placeholderFrames)
}

// Loader returns the scene loader. With Redis configured, scenes are read
// through the store and the returned store is non-nil; the caller closes it.
func Loader(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (game.SceneLoader, *store.Store, error) {
	files := maps.NewSceneLoader(cfg.ScenesDir)
	if cfg.Redis.Addr == "" {
		return files, nil, nil
	}

	st := store.New(cfg.Redis.Addr, cfg.Redis.Prefix, log)
	if err := st.WaitForConnection(ctx, 10, 500*time.Millisecond); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.WithField("addr", cfg.Redis.Addr).Info("Scene store connected")
	return store.NewCachedLoader(st, files), st, nil
}
