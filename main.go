package main

import (
	"embed"
	"fmt"
	"os"

	"sign-translator/internal/bootstrap"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign-translator: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.Logger.Fatal().Err(err).Msg("desktop host exited")
	}
}
