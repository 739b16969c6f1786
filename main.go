package main

import (
	"context"

	"github.com/cppla/miniblog/config"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/routes"
	"github.com/cppla/miniblog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("open %s store: %v", cfg.StoreDriver, err)
	}
	utils.InitRedis(cfg)

	r := routes.SetupRouter(store, cfg)

	utils.Sugar.Infof("Starting server on port %s (store=%s)", cfg.AppPort, cfg.StoreDriver)
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		if err := store.Close(); err != nil {
			utils.Sugar.Warnf("close store: %v", err)
		}
		utils.CloseRedis()
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
