package main

import (
	"log"

	"github.com/aresmaps/mars_relief/internal/app"
	"github.com/aresmaps/mars_relief/pkg/config"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	app.Run(cfg)
}
