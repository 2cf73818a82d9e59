package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var askJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runIngest(ctx, cmd.OutOrStdout(), a.corpus, args)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a question from every ingested document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.corpus.AnswerQuery(ctx, args[0])
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if askJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal answer: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			return printAnswer(cmd.OutOrStdout(), res)
		})
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			docs := a.corpus.Documents()
			if len(docs) == 0 {
				cmd.Println("No documents ingested.")
				return nil
			}
			for _, d := range docs {
				cmd.Println(d)
			}
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every document from the corpus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.corpus.Reset(ctx); err != nil {
				return err
			}
			cmd.Println("Corpus cleared.")
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the document root and serve MCP tools over SSE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runServe)
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(ingestCmd, askCmd, docsCmd, resetCmd, serveCmd)
}

type corpusIngester interface {
	IngestDocument(ctx context.Context, data []byte, filename string) (pipeline.IngestResult, error)
}

// runIngest ingests every file and reports per file. A failing file does
// not stop the batch.
func runIngest(ctx context.Context, w io.Writer, corpus corpusIngester, files []string) error {
	failed := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			fmt.Fprintf(w, "%s: %s\n", f, err)
			failed++
			continue
		}

		res, err := corpus.IngestDocument(ctx, data, filepath.Base(f))
		if err != nil {
			fmt.Fprintf(w, "%s: %s\n", f, err)
			failed++
			continue
		}

		switch {
		case res.Skipped:
			fmt.Fprintf(w, "%s: already ingested as %s\n", f, res.DocID)
		default:
			fmt.Fprintf(w, "%s: %s, %d snippets\n", f, res.DocID, res.Snippets)
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}

	return nil
}

func printAnswer(w io.Writer, res pipeline.Answer) error {
	if len(res.PerDocumentAnswers) == 0 {
		fmt.Fprintln(w, "No document answered the question.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DOCUMENT\tCITATION\tANSWER")
		for _, a := range res.PerDocumentAnswers {
			fmt.Fprintf(tw, "%s\tpage %d, para %d\t%s\n", a.DocID, a.SourcePage, a.SourceParagraph, a.AnswerText)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(res.Themes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Themes:")
		for i, t := range res.Themes {
			fmt.Fprintf(w, "  %d. %s %v\n", i+1, t.Title, t.SupportingDocIDs)
			fmt.Fprintf(w, "     %s\n", t.Summary)
		}
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}

	return nil
}

func runServe(ctx context.Context, a *app) error {
	reg := &DocRegistry{
		log:              a.log.With("component", "registry"),
		root:             a.cfg.DocRoot,
		mergeEventsDelay: a.cfg.debounce(),
		ingester:         a.corpus,
		filter:           a.extractor,
	}

	if err := reg.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync %s: %w", a.cfg.DocRoot, err)
	}

	if err := reg.Watch(ctx); err != nil {
		return err
	}

	srv := NewRagServer(a.corpus)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(a.cfg.ServerAddr)
	}()
	a.log.Info("serving", "addr", a.cfg.ServerAddr, "documents", len(a.corpus.Documents()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
