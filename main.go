package main

import (
	"fmt"
	"log"
	"time"

	"github.com/YellowFlash2012/hoaxgate/internal/config"
	"github.com/YellowFlash2012/hoaxgate/internal/database"
	"github.com/YellowFlash2012/hoaxgate/internal/email"
	"github.com/YellowFlash2012/hoaxgate/internal/filestore"
	"github.com/YellowFlash2012/hoaxgate/internal/router"
	"github.com/YellowFlash2012/hoaxgate/internal/session"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// upload folders
	files := filestore.New(cfg.Upload)
	if err := files.CreateFolders(); err != nil {
		log.Fatalf("create upload dirs: %v", err)
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	// session manager with background expiry sweep
	sessions := session.NewManager(session.NewGormStore(db))
	sweepInterval := session.SweepInterval
	if cfg.Session.SweepIntervalMinutes > 0 {
		sweepInterval = time.Duration(cfg.Session.SweepIntervalMinutes) * time.Minute
	}
	sessions.StartSweeper(sweepInterval)
	defer sessions.Stop()

	mail := email.NewSMTPSender(cfg.Mail)

	// setup router
	r := router.SetupRouter(cfg, db, sessions, mail, files)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Printf("server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
