package main

import (
	"context"
	"log"

	"github.com/Apurer/go-gin-adoption-server/internal/app/api"
)

func main() {
	if err := api.Run(context.Background()); err != nil {
		log.Fatalf("adoption api stopped: %v", err)
	}
}
