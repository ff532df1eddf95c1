package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/notifier"
	"github.com/medveille/veille-backend/notifier/consumers"
	"github.com/medveille/veille-backend/utils"
	"github.com/medveille/veille-backend/utils/dotenv"
	. "github.com/medveille/veille-backend/utils/log"
)

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		panic("failed to connect to database")
	}

	cycle := notifier.DefaultCycle
	if v := os.Getenv("NOTIFIER_CYCLE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		cycle = parsed
	}

	scheduler := notifier.NewScheduler(
		db,
		gateway.NewPgGateway(db),
		consumers.NewExpoAdapter(),
		cycle,
	)

	go scheduler.Start()
	LogV2.Info("veille notifier starts up")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	scheduler.Stop()
	LogV2.Info("veille notifier shutdown")
}
