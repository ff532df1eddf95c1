package main

import (
	"os"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/server"
	"github.com/medveille/veille-backend/session"
	"github.com/medveille/veille-backend/utils"
	"github.com/medveille/veille-backend/utils/dotenv"
	. "github.com/medveille/veille-backend/utils/log"
)

func cleanup() {
	LogV2.Info("veille server shutdown")
}

func main() {
	defer cleanup()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		panic("failed to connect to database")
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		panic(err)
	}

	secret := []byte(os.Getenv("SESSION_SECRET"))
	if len(secret) == 0 {
		panic("SESSION_SECRET not set")
	}

	router := server.NewRouter(server.Deps{
		Gateway:  gateway.NewPgGateway(db),
		Sessions: session.NewStore(db, secret, nil),
		Secret:   secret,
	})

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	LogV2.Info("veille server starts up")
	router.Run(addr)
}
