package main

import (
	"errors"
	"log"
	"os"

	"verzek/cmd/internal/app"
)

func main() {
	if err := app.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, app.ErrCommandFailed) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}
