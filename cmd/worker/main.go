package main

import (
	"context"
	"log"

	"github.com/Apurer/go-gin-adoption-server/internal/app/worker"
)

func main() {
	if err := worker.Run(context.Background()); err != nil {
		log.Fatalf("adoption worker stopped: %v", err)
	}
}
