package main

import (
	"context"
	"log"

	"github.com/nakgoalgo/nakgo/internal/client/cli"
	"github.com/nakgoalgo/nakgo/internal/client/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(context.Background())
}
