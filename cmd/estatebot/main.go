package main

import (
	"log"

	corecmd "github.com/m3rciful/estatebot/core/cmd"
	"github.com/m3rciful/estatebot/internal/app"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "ESTATEBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatal(err)
	}
}
