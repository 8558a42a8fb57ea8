// Command mentals is the CLI entrypoint for the agentic LLM runtime
// (spec.md §6). Grounded on cmd/hector/main.go's kong wiring shape and
// original_source/src/main.cpp's actual flag surface and dual-mode
// behavior: a bare --path runs a `.gen` agent file from its "root"
// instruction, while --path plus --collection instead treats the path
// as a document to ingest into a vector-store partition.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/mentals-ai/mentals/internal/chunker"
	"github.com/mentals-ai/mentals/internal/config"
	"github.com/mentals-ai/mentals/internal/embedclient"
	embedcohere "github.com/mentals-ai/mentals/internal/embedclient/cohere"
	embedollama "github.com/mentals-ai/mentals/internal/embedclient/ollama"
	embedopenai "github.com/mentals-ai/mentals/internal/embedclient/openai"
	"github.com/mentals-ai/mentals/internal/executor"
	"github.com/mentals-ai/mentals/internal/fewshot"
	"github.com/mentals-ai/mentals/internal/filereader"
	"github.com/mentals-ai/mentals/internal/genfile"
	"github.com/mentals-ai/mentals/internal/llmclient"
	llmanthropic "github.com/mentals-ai/mentals/internal/llmclient/anthropic"
	llmollama "github.com/mentals-ai/mentals/internal/llmclient/ollama"
	llmopenai "github.com/mentals-ai/mentals/internal/llmclient/openai"
	"github.com/mentals-ai/mentals/internal/logger"
	"github.com/mentals-ai/mentals/internal/memory"
	"github.com/mentals-ai/mentals/internal/metrics"
	"github.com/mentals-ai/mentals/internal/pipeline"
	"github.com/mentals-ai/mentals/internal/tools"
	"github.com/mentals-ai/mentals/internal/toolregistry"
	"github.com/mentals-ai/mentals/internal/vectorstore"
	"github.com/mentals-ai/mentals/internal/vectorstore/chroma"
	"github.com/mentals-ai/mentals/internal/vectorstore/chromem"
	"github.com/mentals-ai/mentals/internal/vectorstore/pgvector"
	"github.com/mentals-ai/mentals/internal/vectorstore/pinecone"
	"github.com/mentals-ai/mentals/internal/vectorstore/qdrant"
)

// CLI mirrors the original C++ CLI's flat flag surface (main.cpp):
// mentals <path> --input= --collection= --tools-write= --list-collections
// -d/--debug.
type CLI struct {
	Path string `arg:"" optional:"" help:"Path to a .gen agent file, or a document to ingest when --collection is also given." type:"path"`

	Input           string `short:"i" help:"Input text passed to the entry instruction."`
	Collection      string `short:"c" help:"Vector-store partition name. Combined with Path, switches to ingestion mode."`
	ToolsWrite      string `short:"t" name:"tools-write" help:"Regenerate the native tools catalogue TOML at this path and exit." type:"path"`
	ListCollections bool   `short:"l" name:"list-collections" help:"List vector-store collections and their embedding model, then exit."`
	Debug           bool   `short:"d" help:"Enable debug logging."`

	Config      string `help:"Path to the runtime's YAML config file." default:"config.yaml" type:"path"`
	NativeTools string `name:"native-tools" help:"Path to the native tools catalogue TOML." default:"native_tools.toml" type:"path"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090). Empty disables metrics."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("mentals"),
		kong.Description("mentals — an agentic LLM runtime"),
		kong.UsageOnError(),
	)

	level := slog.LevelWarn
	if cli.Debug {
		level = slog.LevelDebug
	}
	logger.Init(level, os.Stderr)

	if err := run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "mentals:", err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var m *metrics.Metrics
	if cli.MetricsAddr != "" {
		m = metrics.New()
		go func() {
			srv := &http.Server{Addr: cli.MetricsAddr, Handler: m.Handler()}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		slog.Info("metrics: serving", "addr", cli.MetricsAddr)
	}

	if cli.ToolsWrite != "" {
		if err := tools.WriteCatalogue(cli.ToolsWrite); err != nil {
			return fmt.Errorf("tools-write: %w", err)
		}
		fmt.Printf("Wrote native tools catalogue to %s\n", cli.ToolsWrite)
		return nil
	}

	if cli.ListCollections {
		return listCollections(cfg)
	}

	if cli.Path == "" {
		return fmt.Errorf("a path is required (agent file, or document with --collection)")
	}

	if cli.Collection != "" {
		return ingest(cli, cfg, m)
	}

	return runAgent(cli, cfg)
}

func listCollections(cfg *config.Config) error {
	ctx := context.Background()
	store, err := buildVectorStore(cfg)
	if err != nil {
		return fmt.Errorf("build vector store: %w", err)
	}
	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}

	collections, err := store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, c := range collections {
		fmt.Printf("%s\t%s\t%d\n", c.Name, c.Model.Name, c.Model.Dimension)
	}
	return nil
}

// ingest wires the RAG ingestion pipeline (original_source/src/main.cpp's
// --path + --collection PipelineFactory): FileReaderToStringBuffer ->
// StringBufferToChunkBuffer -> ChunkBufferToMemoryController.
func ingest(cli *CLI, cfg *config.Config, m *metrics.Metrics) error {
	ctx := context.Background()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	store, err := buildVectorStore(cfg)
	if err != nil {
		return fmt.Errorf("build vector store: %w", err)
	}
	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("connect vector store: %w", err)
	}

	controller, err := memory.New(embedder, store)
	if err != nil {
		return fmt.Errorf("build memory controller: %w", err)
	}
	if err := controller.CreateCollection(ctx, cli.Collection); err != nil {
		slog.Warn("create collection failed (it may already exist)", "collection", cli.Collection, "error", err)
	}

	chunkStrategy, err := chunker.New(chunker.StrategySentences, 0)
	if err != nil {
		return fmt.Errorf("build chunker: %w", err)
	}

	reg := pipeline.NewRegistry()
	reg.Register("FileReaderToStringBuffer", pipeline.NewFileReaderToStringBuffer(filereader.New()))
	reg.Register("StringBufferToChunkBuffer", pipeline.NewStringBufferToChunkBuffer(chunkStrategy))
	reg.Register("ChunkBufferToMemoryController", pipeline.NewChunkBufferToMemoryController(controller, cli.Collection, cli.Path, nil))

	maxParallelism := pipeline.DefaultMaxParallelism
	p, err := reg.Build([]string{
		"FileReaderToStringBuffer",
		"StringBufferToChunkBuffer",
		"ChunkBufferToMemoryController",
	}, maxParallelism)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	out, err := p.Execute(ctx, pipeline.Single("path", cli.Path))
	if err != nil {
		if m != nil {
			m.IncChunkWriteFailure()
		}
		return fmt.Errorf("run pipeline: %w", err)
	}
	if out.Empty() {
		fmt.Println("Ingestion produced no chunks.")
		return nil
	}

	fmt.Printf("Ingested %s into collection %q (content_id: %v)\n", cli.Path, cli.Collection, out.Value)
	fmt.Printf("Processed bytes: %d, processed tokens: %d\n", controller.ProcessedBytes(), controller.ProcessedTokens())
	return nil
}

// runAgent loads a .gen agent file and runs it from its "root" label
// (original_source/src/main.cpp always enters at "root").
func runAgent(cli *CLI, cfg *config.Config) error {
	ctx := context.Background()

	variables, instructions, err := genfile.Parse(cli.Path)
	if err != nil {
		return fmt.Errorf("parse agent file: %w", err)
	}
	rendered := genfile.Render(instructions, variables, cli.Input)

	llm, err := buildLLM(cfg)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}

	registry := toolregistry.New()
	summarizer := fewshot.New(llm)

	e := executor.New(llm, registry, summarizer, executor.DefaultSystemPromptTemplate, 150)
	if err := e.InitNativeTools(cli.NativeTools); err != nil {
		return fmt.Errorf("init native tools: %w", err)
	}
	if needsCodeExecutor(rendered) {
		slog.Debug("agent file references a python-capable tool; a sandbox will be created lazily")
	}
	if err := e.InitAgent(ctx, rendered); err != nil {
		return fmt.Errorf("init agent: %w", err)
	}

	output, err := e.Run(ctx, "root", cli.Input, nil)
	if err != nil {
		return fmt.Errorf("run agent: %w", err)
	}

	fmt.Println(output)

	usage := e.Usage()
	fmt.Println("--------------------------------------------")
	fmt.Printf("Completion tokens: %d\n", usage.CompletionTokens)
	fmt.Printf("Total tokens: %d\n", usage.TotalTokens)
	fmt.Printf("Total NLOP: %d\n", e.NLOPCount())
	return nil
}

// needsCodeExecutor reports whether any instruction uses a tool whose
// handler requires the sandboxed Python interpreter. Executor.InitAgent
// already makes this determination internally; this is purely a log hint.
func needsCodeExecutor(instructions map[string]genfile.Instruction) bool {
	for _, instr := range instructions {
		for _, use := range instr.Use {
			if use == "execute_python_script" {
				return true
			}
		}
	}
	return false
}

func buildLLM(cfg *config.Config) (llmclient.Client, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	switch cfg.LLM.Provider {
	case "", "openai":
		return llmopenai.New(llmopenai.Config{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  timeout,
		})
	case "anthropic":
		return llmanthropic.New(llmanthropic.Config{
			Endpoint: cfg.LLM.Endpoint,
			APIKey:   cfg.LLM.APIKey,
			Model:    cfg.LLM.Model,
			Timeout:  timeout,
		})
	case "ollama":
		return llmollama.New(llmollama.Config{
			BaseURL: cfg.LLM.Endpoint,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildEmbedder(cfg *config.Config) (embedclient.Client, error) {
	switch cfg.Embedder.Provider {
	case "", "openai":
		return embedopenai.New(embedopenai.Config{
			APIKey:    cfg.Embedder.APIKey,
			BaseURL:   cfg.Embedder.Endpoint,
			Model:     cfg.Embedder.Model,
			Dimension: cfg.Embedder.Dimension,
		})
	case "cohere":
		return embedcohere.New(embedcohere.Config{
			APIKey:    cfg.Embedder.APIKey,
			BaseURL:   cfg.Embedder.Endpoint,
			Model:     cfg.Embedder.Model,
			Dimension: cfg.Embedder.Dimension,
		})
	case "ollama":
		return embedollama.New(embedollama.Config{
			BaseURL:   cfg.Embedder.Endpoint,
			Model:     cfg.Embedder.Model,
			Dimension: cfg.Embedder.Dimension,
		})
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func buildVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "", "chromem":
		return chromem.New(), nil
	case "qdrant":
		return qdrant.New(qdrant.Config{
			Host:   cfg.VectorStore.HostAddr,
			Port:   cfg.VectorStore.Port,
			APIKey: cfg.VectorStore.APIKey,
		})
	case "pinecone":
		return pinecone.New(pinecone.Config{
			APIKey: cfg.VectorStore.APIKey,
			Host:   cfg.VectorStore.HostAddr,
		})
	case "chroma":
		return chroma.New(chroma.Config{
			Host:   cfg.VectorStore.HostAddr,
			Port:   cfg.VectorStore.Port,
			APIKey: cfg.VectorStore.APIKey,
		})
	case "pgvector":
		return pgvector.New(pgvector.Config{
			DBName:   cfg.VectorStore.DBName,
			User:     cfg.VectorStore.User,
			Password: cfg.VectorStore.Password,
			HostAddr: cfg.VectorStore.HostAddr,
			Port:     cfg.VectorStore.Port,
		})
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.VectorStore.Type)
	}
}
