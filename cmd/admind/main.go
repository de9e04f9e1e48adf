// cmd/admind runs the admin resource server over a SQLite database.
//
// Resources can come from two places: the built-in demo contracts declared
// in contracts.go, and CUE definitions loaded from the directory named by
// CONTRACTS_DIR. Every resource gets a JSON-document table, list/single/form
// stores, and the full HTTP surface.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/adminkit/internal/backend"
	"github.com/matthewbaird/adminkit/internal/cueschema"
	"github.com/matthewbaird/adminkit/internal/schema"
	"github.com/matthewbaird/adminkit/internal/server"
	"github.com/matthewbaird/adminkit/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "file:adminkit.db?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	stores := store.NewRegistry(ctx)
	defer stores.Close()
	srv := server.New(stores)

	contracts := demoContracts()
	if dir := os.Getenv("CONTRACTS_DIR"); dir != "" {
		loaded, err := cueschema.Load(dir)
		if err != nil {
			log.Fatalf("loading contracts from %s: %v", dir, err)
		}
		contracts = append(contracts, loaded...)
	}

	for _, contract := range contracts {
		if err := registerResource(ctx, srv, db, contract); err != nil {
			log.Fatalf("registering %s: %v", contract.Name, err)
		}
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	if err := server.Run(ctx, server.Config{Port: port, Server: srv}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func registerResource(ctx context.Context, srv *server.Server, db *sql.DB, contract *schema.Contract) error {
	be, err := backend.OpenSQLite(ctx, db, contract.Name)
	if err != nil {
		return err
	}
	srv.Register(contract.Name, server.Resource{
		Contract: contract,
		List:     be.List,
		Get:      be.Get,
		Save:     be.Save,
		Delete:   be.Delete,
	})
	return nil
}
