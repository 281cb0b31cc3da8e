package main

import (
	"log"

	"github.com/tech-arch1tect/gatekeeper"
)

func main() {
	app, err := gatekeeper.New()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	app.Run()
}
