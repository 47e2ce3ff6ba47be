package main

import (
	"flag"
	"log"
	"os"

	"AstroAI/internal/di"
	"AstroAI/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	check := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("env=%s port=%d cache=%s kafka=%t clickhouse=%t llm=%t",
		cfg.Environment, cfg.Server.Port, cfg.Cache.Type, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.LLM.APIKey != "")
	if *check {
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT or SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
