package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sezatoare/sezatoare/internal/agent"
	"github.com/sezatoare/sezatoare/internal/analyzer"
	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/config"
	"github.com/sezatoare/sezatoare/internal/llm/openai"
	"github.com/sezatoare/sezatoare/internal/orchestrator"
	"github.com/sezatoare/sezatoare/internal/session"
	"github.com/sezatoare/sezatoare/internal/tool"
	"github.com/sezatoare/sezatoare/internal/web"
)

const (
	exitConfigError = 1
	exitCrash       = 2
)

func main() {
	config.LoadEnv()

	cfg, err := config.NewServerConfig("sezatoare.yaml")
	if err != nil {
		log.Printf("[Main] Configuration error: %v", err)
		os.Exit(exitConfigError)
	}

	llmCfg, err := openai.NewConfigFromEnv()
	if err != nil {
		log.Printf("[Main] %v", err)
		os.Exit(exitConfigError)
	}
	provider, err := openai.NewClient(llmCfg)
	if err != nil {
		log.Printf("[Main] LLM client error: %v", err)
		os.Exit(exitConfigError)
	}

	registry, err := catalog.NewRegistry(os.Getenv("CATALOG_PATH"))
	if err != nil {
		log.Printf("[Main] Catalog error: %v", err)
		os.Exit(exitConfigError)
	}

	knowledgePath := os.Getenv("KNOWLEDGE_PATH")
	knowledge, err := catalog.NewKnowledgeCatalog(knowledgePath)
	if err != nil {
		log.Printf("[Main] Knowledge catalog error: %v", err)
		os.Exit(exitConfigError)
	}

	sessionsPath := os.Getenv("SESSIONS_PATH")
	if sessionsPath == "" {
		sessionsPath = "sessions"
	}
	store, err := session.NewStore(sessionsPath)
	if err != nil {
		log.Printf("[Main] Session store error: %v", err)
		os.Exit(exitConfigError)
	}

	var search tool.SearchProvider
	if key := os.Getenv("WEB_SEARCH_API_KEY"); key != "" {
		search = tool.NewTavilyProvider(key)
	} else {
		log.Printf("[Main] WEB_SEARCH_API_KEY not set, web_search tool disabled")
	}
	tools := tool.NewRuntime(search, knowledge, cfg.ToolTimeout)
	runner := agent.NewRunner(provider, registry, cfg.AgentTimeout, cfg.HistoryWindow)
	an := analyzer.New(registry, knowledge, cfg.DefaultAgent)
	orch := orchestrator.New(store, registry, an, tools, runner, cfg.DefaultAgent, cfg.TurnTimeout)

	server := web.NewServer(":"+cfg.Port, store, registry, knowledge, orch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hot-reload the agent catalog when its file changes on disk.
	go func() {
		if err := registry.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[Main] Catalog watcher stopped: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[Main] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] Shutdown error: %v", err)
		}
		<-errCh
	case err := <-errCh:
		log.Printf("[Main] Server crashed: %v", err)
		os.Exit(exitCrash)
	}
}
