package main

import (
	"strings"

	"github.com/spf13/cobra"

	rag_http "doc-qa/internal/adapter/rag_http"
	"doc-qa/internal/di"
	"doc-qa/internal/usecase"
)

var askK int

var askCmd = &cobra.Command{
	Use:   "ask <doc-id> <question...>",
	Short: "Answer a question from an ingested document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k := askK
		if !cmd.Flags().Changed("k") {
			k = cfg.RAG.DefaultK
		}
		input := usecase.AnswerWithRAGInput{
			DocumentID: args[0],
			Question:   strings.Join(args[1:], " "),
			K:          k,
		}

		return withComponents(cmd.Context(), func(app *di.ApplicationComponents) error {
			out, err := app.AnswerUsecase.Execute(cmd.Context(), input)
			if err != nil {
				return err
			}

			citations := make([]rag_http.CitationResponse, 0, len(out.Citations))
			for _, c := range out.Citations {
				citations = append(citations, rag_http.CitationResponse{Page: c.Page, Snippet: c.Snippet})
			}
			return printJSON(cmd.OutOrStdout(), rag_http.AskResponse{
				Answer:     out.Answer,
				Citations:  citations,
				UsedChunks: out.UsedChunks,
			})
		})
	},
}

func init() {
	askCmd.Flags().IntVarP(&askK, "k", "k", usecase.DefaultK, "number of excerpts to retrieve (1-15)")
}
