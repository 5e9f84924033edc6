// Command app runs the desktop host serving ./frontend from disk instead of embedded assets.
package main

import (
	"fmt"
	"os"

	"sign-translator/internal/bootstrap"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign-translator: %v\n", err)
		os.Exit(1)
	}

	app.Logger.Info().Int("languages", len(app.GetLanguages())).Msg("starting desktop host")
	if err := app.Run(); err != nil {
		app.Logger.Fatal().Err(err).Msg("desktop host exited")
	}
}
