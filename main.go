package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"maskbeat-ebiten/battle"
	"maskbeat-ebiten/config"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a yaml tuning file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	b, err := battle.New(cfg)
	if err != nil {
		log.Fatalf("Failed to set up battle: %v", err)
	}
	defer b.Close()

	if err := b.StartSpawning(); err != nil {
		// トークン設定が空でもマスク操作は試せるので起動は続ける
		log.Printf("Spawner not started: %v", err)
	}

	game := NewGame(cfg, b)
	defer game.Messages.Close()

	ebiten.SetWindowSize(cfg.UI.Screen.Width, cfg.UI.Screen.Height)
	ebiten.SetWindowTitle("Mask Beat")

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
