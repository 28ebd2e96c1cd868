// Command finrag is a financial document chatbot.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/finrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/finrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/finrag/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/finrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/finrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/finrag/internal/chunker"
	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
	"github.com/custodia-labs/finrag/internal/core/services"
	"github.com/custodia-labs/finrag/internal/extractors"
	"github.com/custodia-labs/finrag/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// a missing .env is normal
	_ = godotenv.Load()

	if lvl := os.Getenv("FINRAG_LOG_LEVEL"); lvl != "" {
		if l, err := logger.ParseLevel(lvl); err == nil {
			logger.SetLevel(l)
		}
	}

	home, err := homeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	app, err := build(home)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	defer app.Close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	return cli.Execute(ctx)
}

// homeDir returns FINRAG_HOME or ~/.finrag.
func homeDir() (string, error) {
	if h := os.Getenv("FINRAG_HOME"); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(userHome, ".finrag"), nil
}

// application owns everything that must be closed on exit.
type application struct {
	services cli.Services
	closers  []io.Closer
	ai       *ai.Services
}

func (a *application) Close() {
	if a.ai != nil {
		a.ai.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("closing: %v", err)
		}
	}
}

// build wires the dependency graph. Chat and ingestion are left unset when
// no AI provider is configured, so settings commands keep working.
func build(home string) (*application, error) {
	app := &application{}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	app.services.Settings = settingsService

	index, sessions, err := openStorage(app, filepath.Join(home, "data"), settings)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.services.Session = services.NewSessionService(sessions)

	providers, err := ai.NewServices(*settings)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			app.Close()
			return nil, err
		}
		logger.Debug("AI providers unavailable: %v", err)
		app.services.Document = services.NewDocumentService(index, nil)
		return app, nil
	}
	app.ai = providers

	engine := services.NewQueryEngine(providers.Embedding, providers.LLM, index, sessions, prompts, settings.RAG)

	splitter := chunker.New(
		chunker.WithChunkSize(settings.RAG.ChunkSize),
		chunker.WithOverlap(settings.RAG.ChunkOverlap),
	)
	app.services.Ingest = services.NewIngestService(
		extractors.DefaultRegistry(), splitter, providers.Embedding, index,
		services.WithMaxFileSize(settings.RAG.MaxFileSizeBytes()),
		services.WithIndexListener(engine.InvalidateIndexCache),
	)
	app.services.Document = services.NewDocumentService(index, engine.InvalidateIndexCache)
	app.services.Chat = engine

	return app, nil
}

// openStorage selects the vector index and session store backends.
func openStorage(
	app *application,
	dataDir string,
	settings *domain.AppSettings,
) (driven.VectorIndex, driven.SessionStore, error) {
	maxTurns := settings.RAG.MaxConversationTurns

	var (
		index    driven.VectorIndex
		sessions driven.SessionStore
		db       *sqlite.Store
	)

	openSQLite := func() (*sqlite.Store, error) {
		if db != nil {
			return db, nil
		}
		s, err := sqlite.NewStore(dataDir, sqlite.WithMaxTurns(maxTurns))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		app.closers = append(app.closers, s)
		db = s
		return s, nil
	}

	switch settings.Storage.VectorBackend {
	case domain.StorageMemory:
		index = memory.NewVectorIndex()
	default:
		s, err := openSQLite()
		if err != nil {
			return nil, nil, err
		}
		index = s.VectorIndex()
	}

	switch settings.Storage.SessionBackend {
	case domain.StorageMemory:
		sessions = memory.NewSessionStore(memory.WithMaxTurns(maxTurns))
	case domain.StorageBolt:
		s, err := bolt.NewSessionStore(dataDir, bolt.WithMaxTurns(maxTurns))
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt store: %w", err)
		}
		app.closers = append(app.closers, s)
		sessions = s
	default:
		s, err := openSQLite()
		if err != nil {
			return nil, nil, err
		}
		sessions = s.SessionStore()
	}

	return index, sessions, nil
}
