package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/llm"
	"github.com/gamma-omg/rag-themes/ocr"
	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/gamma-omg/rag-themes/readers"
	"github.com/gamma-omg/rag-themes/synth"
)

const (
	answerSystemPrompt = "You are a JSON-emitting data extraction assistant."
	themeSystemPrompt  = "You are a JSON-emitting research analyst."
)

var errNoEmbeddings = errors.New("invalid embeddings provider configuration")

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			cfg.OpenAI.ApiKey,
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(cfg.Gemini.ApiKey),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errNoEmbeddings
}

func initDocStore(ctx context.Context, cfg *Config, reset bool) (docstore.Store, error) {
	ef, err := createEmbeddingFunction(cfg)
	if err != nil && !(errors.Is(err, errNoEmbeddings) && cfg.Store.Type == storeMemory) {
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	if cfg.Store.Type == storeMemory {
		if ef == nil {
			return docstore.NewMemoryStore(docstore.HashEmbedder{}), nil
		}
		return docstore.NewMemoryStore(docstore.EmbeddingFunc{EF: ef}), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := docstore.NewChromaStore(ctx, docstore.ChromaStoreConfig{
		BaseURL:       cfg.Store.ChromaAddr,
		Collection:    cfg.Store.Collection,
		EmbeddingFunc: ef,
		RequestSize:   cfg.Store.RequestSize,
		Reset:         reset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Chroma doc store: %w", err)
	}

	return store, nil
}

// initOCR returns the configured engine and a cleanup func.
func initOCR(ctx context.Context, cfg *Config) (readers.OCREngine, func(), error) {
	if cfg.OCR.Engine == ocrVision {
		v, err := ocr.NewVision(ctx, cfg.OCR.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Vision OCR client: %w", err)
		}
		return v, func() { _ = v.Close() }, nil
	}

	return &ocr.Tesseract{Languages: cfg.OCR.Languages}, func() {}, nil
}

func initExtractor(cfg *Config, engine readers.OCREngine, logger *slog.Logger) *readers.UniversalReader {
	pdf := readers.NewPdfFileReader(engine, &readers.Pdftoppm{Path: cfg.Extract.Pdftoppm},
		readers.WithMinTextChars(*cfg.Extract.MinTextChars),
		readers.WithDPI(cfg.Extract.OCRDPI),
		readers.WithPageTimeout(cfg.pageTimeout()),
		readers.WithLogger(logger))

	return readers.NewUniversalReader(
		&readers.TxtFileReader{},
		&readers.ImageFileReader{OCR: engine, Timeout: cfg.pageTimeout()},
		pdf,
		&readers.OfficeFileReader{},
	)
}

func initModel(cfg *Config, m ModelConfig, system string) (*llm.Client, error) {
	c, err := llm.New(llm.Config{
		APIKey:            cfg.LLM.ApiKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             m.Model,
		SystemPrompt:      system,
		Temperature:       *m.Temperature,
		MaxTokens:         m.MaxTokens,
		JSONMode:          true,
		Timeout:           time.Duration(cfg.LLM.TimeoutS) * time.Second,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client %s: %w", m.Model, err)
	}

	return c, nil
}

// app holds everything a command needs.
type app struct {
	cfg       *Config
	log       *slog.Logger
	corpus    *pipeline.Corpus
	extractor *readers.UniversalReader
	close     func()
}

func newApp(ctx context.Context, cfg *Config, logger *slog.Logger, reset bool) (*app, error) {
	store, err := initDocStore(ctx, cfg, reset)
	if err != nil {
		return nil, err
	}

	engine, closeOCR, err := initOCR(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stage1, err := initModel(cfg, cfg.LLM.Stage1, answerSystemPrompt)
	if err != nil {
		closeOCR()
		return nil, err
	}

	stage2, err := initModel(cfg, cfg.LLM.Stage2, themeSystemPrompt)
	if err != nil {
		closeOCR()
		return nil, err
	}

	extractor := initExtractor(cfg, engine, logger)
	corpus, err := pipeline.Open(ctx, store,
		extractor,
		synth.NewAnswerSynthesizer(stage1, logger),
		synth.NewThemeSynthesizer(stage2, logger),
		pipeline.WithTopK(cfg.Retrieval.TopK),
		pipeline.WithWorkers(cfg.Synth.Workers),
		pipeline.WithLogger(logger))
	if err != nil {
		closeOCR()
		return nil, err
	}

	return &app{cfg: cfg, log: logger, corpus: corpus, extractor: extractor, close: closeOCR}, nil
}
