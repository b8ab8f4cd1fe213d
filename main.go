package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	app "github.com/rocketscienceinc/tictactoe-arena/internal"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.SlogLevel()}))
	logger.Info("starting arena",
		"httpPort", conf.HTTPPort, "socketPort", conf.SocketPort, "pubsub", conf.PubSubDriver)

	if err = app.RunApp(logger, conf); err != nil {
		logger.Error("app run failed", "error", err)
		os.Exit(1)
	}
}
