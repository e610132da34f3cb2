package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"bankops/adapter"
	"bankops/adapters/cascade"
	"bankops/adapters/harborstone"
	"bankops/adapters/meridian"
	"bankops/bank"
	"bankops/fetch"
	"bankops/infra"
	"bankops/session"
	"bankops/svc"

	"github.com/joho/godotenv"
)

func main() {
	bankID := flag.String("bank", "", "retrieve from one bank id instead of all")
	outDir := flag.String("out", "statements", "directory to write downloaded pdfs into")
	snapshotPath := flag.String("snapshot", "storage-snapshot.json", "browser storage snapshot exported by the extension host")
	serveAddr := flag.String("serve", "", "also serve the progress stream on this address")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("failed to load .env file: %v", err)
	}

	svc.InitLoggers(nil)
	config := infra.MakeConfig()

	store, err := session.LoadSnapshot(*snapshotPath)
	if err != nil {
		svc.Fatal(context.Background(), "failed to load storage snapshot", err)
	}

	registry := &adapter.Registry{}
	if err := registry.Register(makeAdapters(store)...); err != nil {
		svc.Fatal(context.Background(), "failed to register adapters", err)
	}

	app := svc.MakeApp(config, registry)
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *serveAddr != "" {
		go func() {
			if err := http.ListenAndServe(*serveAddr, svc.RegisterRoutes(app)); err != nil {
				svc.Fatal(ctx, "failed to start progress server", err)
			}
		}()
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		svc.Fatal(ctx, "failed to create output directory", err)
	}
	sink := fileSink(*outDir)

	if *bankID != "" {
		a, ok := registry.Lookup(*bankID)
		if !ok {
			svc.Fatal(ctx, "unknown bank id", fmt.Errorf("no adapter registered for %q", *bankID))
		}
		if _, err := app.RunRetrieval(ctx, a, sink); err != nil {
			svc.Fatal(ctx, "retrieval failed", err)
		}
		return
	}

	if failures := app.RunAll(ctx, sink); len(failures) > 0 {
		slog.Error("some retrievals failed", "failed", len(failures))
		os.Exit(1)
	}
}

func makeAdapters(store session.Store) []adapter.Adapter {
	direct := fetch.MakeClient(nil, nil)

	return []adapter.Adapter{
		meridian.Make(envOr("MERIDIAN_BASE_URL", "https://online.meridianbank.example"), direct, store),
		cascade.Make(envOr("CASCADE_BASE_URL", "https://digital.cascadecu.example"), direct, store),
		harborstone.Make(
			envOr("HARBORSTONE_BASE_URL", "https://secure.harborstone.example"),
			envOr("HARBORSTONE_DOCS_URL", "https://docs.harborstone.example"),
			direct,
			// outside a browser there is no CORS to bridge around, the document
			// host is fetched directly.
			direct,
			store,
		),
	}
}

func fileSink(outDir string) svc.Sink {
	return func(statement bank.Statement, doc bank.Document) error {
		name := fmt.Sprintf("%s-%s-%s.pdf", statement.Account.Profile.ProfileID, statement.Account.AccountMask, statement.Date)
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
