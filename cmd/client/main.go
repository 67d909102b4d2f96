// Package main runs the interactive Shoebox client over one of the storage shapes:
// a local JSON file, a local SQLite database, the Shoebox server or a Supabase project.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/atinyakov/shoebox/internal/client/shell"
	"github.com/atinyakov/shoebox/internal/logger"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags, opens the selected store and starts the shell.
func main() {
	var (
		opts    options
		showVer bool
		level   string
	)

	flag.StringVar(&opts.store, "store", storeFile, "storage: file | sqlite | remote | supabase")
	flag.StringVar(&opts.file, "file", "", "path to the local file or database")
	flag.StringVar(&opts.url, "url", "https://localhost:8080", "Shoebox server base URL")
	flag.StringVar(&opts.token, "token", os.Getenv("SHOEBOX_TOKEN"), "bearer token for remote stores")
	flag.StringVar(&opts.supabaseURL, "supabase-url", os.Getenv("SUPABASE_URL"), "Supabase project URL")
	flag.StringVar(&opts.supabaseKey, "supabase-key", os.Getenv("SUPABASE_ANON_KEY"), "Supabase anon key")
	flag.StringVar(&opts.certFile, "cert", "", "path to client cert")
	flag.StringVar(&opts.keyFile, "key", "", "path to client key")
	flag.StringVar(&opts.caFile, "ca", "", "path to CA cert")
	flag.StringVar(&level, "log-level", "warn", "log level")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Shoebox Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	l := logger.New()
	if err := l.InitConsole(level); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := open(opts, l.Log)
	if err != nil {
		l.Log.Fatal("cannot open store", zap.String("store", opts.store), zap.Error(err))
	}
	defer b.close()

	store := shoebox.NewStore(b.repo, b.identity, shoebox.WithLogger(l.Log))
	if err := b.signIn(ctx); err != nil {
		l.Log.Fatal("cannot sign in", zap.Error(err))
	}

	if err := shell.New(store, os.Stdin, os.Stdout, shell.WithIdentity(b.identity)).Run(ctx); err != nil {
		l.Log.Fatal("shell failed", zap.Error(err))
	}
}
