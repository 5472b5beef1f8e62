// smartspend-scan reads bill images, PDFs and text files and prints one JSON
// result per file, in argument order.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
	"github.com/ravindran-dev/SmartSpend/internal/categorize"
	"github.com/ravindran-dev/SmartSpend/internal/scanning"
)

var supportedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".heic": true, ".heif": true, ".txt": true,
}

type fileResult struct {
	File string `json:"file"`
	bill.Result
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	flags := ff.NewFlagSet("smartspend-scan")
	var (
		scannerType   = flags.StringLong("scanner", "tesseract", "Text source: 'tesseract', 'gemini' or 'ollama'")
		tesseractLang = flags.StringLong("tesseract-lang", "eng", "Tesseract languages joined with '+', e.g. eng+hin")
		geminiKey     = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = flags.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = flags.StringLong("ollama-model", "llava", "Ollama vision model name")
		modelPath     = flags.StringLong("model", "", "Trained naive Bayes category model (optional)")
		concurrency   = flags.IntLong("concurrency", 4, "Files processed in parallel")
		logLevel      = flags.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("SMARTSPEND"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --log-level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	decimal.MarshalJSONWithoutQuotes = true

	paths, err := collectFiles(flags.GetArgs())
	if err != nil {
		slog.Error("Failed to collect files", "error", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "usage: smartspend-scan [flags] FILE|DIR...\n")
		os.Exit(1)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	scanner, err := scanning.New(scanning.Config{
		Kind:               *scannerType,
		TesseractLanguages: strings.Split(*tesseractLang, "+"),
		GeminiAPIKey:       apiKey,
		GeminiModel:        *geminiModel,
		OllamaURL:          *ollamaURL,
		OllamaModel:        *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize scanner", "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	classifier := categorize.NewClassifier(nil)
	if *modelPath != "" {
		model, err := categorize.LoadBayesModel(*modelPath)
		if err != nil {
			slog.Warn("Category model not loaded, using rules only", "path", *modelPath, "error", err)
		} else {
			classifier = categorize.NewClassifier(model)
		}
	}
	pipeline := bill.NewPipeline(classifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := scanAll(ctx, scanner, pipeline, paths, *concurrency)
	if err != nil {
		slog.Error("Scan interrupted", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if r == nil {
			continue
		}
		if err := enc.Encode(r); err != nil {
			slog.Error("Error encoding result", "error", err)
			os.Exit(1)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// collectFiles expands directories into the supported files they contain
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

// scanAll processes files with bounded concurrency. A file that fails is
// reported in its result; only cancellation stops the batch.
func scanAll(ctx context.Context, scanner scanning.Scanner, pipeline *bill.Pipeline, paths []string, limit int) ([]*fileResult, error) {
	results := make([]*fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, limit))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scanFile(scanner, pipeline, path)
			return nil
		})
	}

	return results, g.Wait()
}

func scanFile(scanner scanning.Scanner, pipeline *bill.Pipeline, path string) *fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return &fileResult{File: path, Result: bill.Result{Error: fmt.Sprintf("reading file: %v", err)}}
	}

	contentType := scanning.ContentTypeFromFilename(path)
	if scanning.IsText(contentType) {
		return &fileResult{File: path, Result: pipeline.Process(string(data), bill.SourceText)}
	}

	text, err := scanner.ScanText(data, contentType)
	if err != nil {
		slog.Warn("Failed to scan bill", "file", path, "error", err)
		return &fileResult{File: path, Result: bill.Result{Error: fmt.Sprintf("scanning bill: %v", err)}}
	}
	return &fileResult{File: path, Result: pipeline.Process(text, scanning.SourceFor(data, contentType))}
}
