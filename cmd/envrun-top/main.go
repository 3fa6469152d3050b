package main

import (
	"flag"
	"log"

	"envrun/internal/app"
	"envrun/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	controller, err := app.New(app.Options{ConfigPath: *configPath})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := tui.Run(controller, controller.Config().RegistryDir); err != nil {
		log.Fatalf("tui exited with error: %v", err)
	}
}
