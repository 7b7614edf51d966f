package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/doc-ledger/internal/expense"
	"github.com/zombor/doc-ledger/internal/logger"
	"github.com/zombor/doc-ledger/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	flags := ff.NewFlagSet("doc-ledger")
	var (
		port        = flags.IntLong("port", 8080, "HTTP server port")
		dbPath      = flags.StringLong("db", "doc-ledger.db", "Document journal file path")
		storagePath = flags.StringLong("storage", "./documents", "Directory for uploaded documents")
		pdfEngine   = flags.StringLong("pdf-engine", scanning.EngineFitz, "PDF text engine: 'fitz' (MuPDF) or 'pure' (no cgo)")
		authUser    = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel    = flags.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		logFormat   = flags.StringLong("log-format", "text", "Log format: text or json")
		showVersion = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("DOC_LEDGER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger.Init(os.Stderr, *logLevel, *logFormat)

	slog.Info("Initializing document journal...", "path", *dbPath)
	journal, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize document journal", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	extractor, err := scanning.NewExtractor(*pdfEngine)
	if err != nil {
		slog.Error("Failed to initialize PDF engine", "engine", *pdfEngine, "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := expense.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// The ledger lives for the process lifetime and is not persisted
	ledger := expense.NewLedger()
	service := expense.NewService(ledger, extractor, journal, store)

	server := expense.NewServer(service, expense.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version, "pdf_engine", *pdfEngine)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
