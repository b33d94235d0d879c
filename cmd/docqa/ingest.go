package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	rag_http "doc-qa/internal/adapter/rag_http"
	"doc-qa/internal/di"
	"doc-qa/internal/domain"
	"doc-qa/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Index a PDF and print its document id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, path)
		}

		return withComponents(cmd.Context(), func(app *di.ApplicationComponents) error {
			out, err := app.IngestUsecase.Execute(cmd.Context(), usecase.IngestDocumentInput{Path: path})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rag_http.IngestResponse{
				DocID:  out.DocumentID,
				Pages:  out.Pages,
				Chunks: out.Chunks,
			})
		})
	},
}
