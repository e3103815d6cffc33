package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tileworld/internal/app"
	"tileworld/internal/config"
	"tileworld/internal/diag"
	"tileworld/internal/logger"
	"tileworld/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := ensureHostKey(cfg.HostKeyPath, log); err != nil {
		log.WithError(err).Fatal("Host key error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := app.Catalog(cfg, log)
	sheet := app.Sheet(cfg, log)
	loader, st, err := app.Loader(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Scene store unavailable")
	}
	if st != nil {
		defer st.Close()
	}

	hub := diag.NewHub(log)
	if cfg.Diag.Addr != "" {
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Diag.Addr); err != nil {
				log.WithError(err).Error("Diagnostics listener stopped")
			}
		}()
	}

	srv := server.NewSSHServer(server.Options{
		Addr:         cfg.Addr,
		HostKey:      cfg.HostKeyPath,
		DefaultScene: cfg.DefaultScene,
		Sim:          cfg.Sim,
		Catalog:      catalog,
		Loader:       loader,
		Sheet:        sheet,
		Store:        st,
		Diag:         hub,
		Log:          log,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("SSH shutdown incomplete")
		}
	}()

	if _, port, err := net.SplitHostPort(cfg.Addr); err == nil {
		log.Infof("Connect with: ssh -t -p %s YourName@localhost", port)
	}
	if err := srv.Start(); err != nil {
		log.WithError(err).Fatal("SSH server error")
	}
}

func ensureHostKey(path string, log logrus.FieldLogger) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	log.Info("Generating new host key")
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return pem.Encode(f, &pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})
}
