package main

import (
	"log"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("[curumim] fatal: %v", err)
	}
}
