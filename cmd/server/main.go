package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/comanda-pos/api/internal/config"
	"github.com/comanda-pos/api/internal/poller"
	"github.com/comanda-pos/api/internal/postgres"
	"github.com/comanda-pos/api/internal/router"
	"github.com/comanda-pos/api/internal/service"
	"github.com/comanda-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	store := postgres.New(pool)
	tabs := service.NewTabService(store)

	hub := ws.NewHub()
	go hub.Run()

	sync := poller.New(tabs, hub, cfg.PollInterval)
	go sync.Run(ctx)

	r := router.New(cfg, store, pool, tabs, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
