// Command patio is a command line client for a patio server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
)

func main() {
	home, _ := os.UserHomeDir()
	app := &App{Out: os.Stdout}
	flag.StringVar(&app.Server, "server", os.Getenv("PATIO_SERVER"), "server address, e.g. https://photos.example.com/api")
	flag.StringVar(&app.Session, "session", filepath.Join(home, ".patio-session.json"), "where the login token is kept")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.Run(ctx, flag.Args()); err != nil {
		log.Fatal(err)
	}
}
