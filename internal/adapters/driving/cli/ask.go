package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the ingested documents",
	Long: `Answer a question using only the ingested documents.

The nearest chunks are retrieved, judged for relevance and the best are
passed to the LLM. If none of them answer the question the reply is:

  ` + domain.NoAnswerSentinel + `

Without a question argument the interactive UI starts when stdin is a
terminal; otherwise the question is read from stdin.

Examples:
  ragline ask "What is the refund window?"
  ragline ask --title handbook "Who approves travel?"
  echo "Summarise the Q3 risks" | ragline ask --json`,
	RunE: runAsk,
}

var (
	askTitle        string
	askJSON         bool
	askShowContexts bool
	askTopK         int
	askTopN         int
)

func init() {
	askCmd.Flags().StringVarP(&askTitle, "title", "t", "", "Only use documents whose title contains this text")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the answer as JSON")
	askCmd.Flags().BoolVarP(&askShowContexts, "contexts", "c", false, "Print the contexts the answer used")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Chunks to retrieve (0 = configured default)")
	askCmd.Flags().IntVar(&askTopN, "top-n", 0, "Chunks kept after re-ranking (0 = configured default)")
	rootCmd.AddCommand(askCmd)
}

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errNoQueryService
	}
	if askTopK < 0 || askTopN < 0 {
		return fmt.Errorf("%w: --top-k and --top-n must not be negative", domain.ErrInvalidInput)
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		if stdinIsTerminal() {
			return launchTUI(cmd, askTitle, driving.QueryOptions{TopK: askTopK, TopN: askTopN})
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read question: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}

	answer, err := queryService.AskWithOptions(commandContext(cmd),
		domain.Query{Text: question, Title: askTitle},
		driving.QueryOptions{TopK: askTopK, TopN: askTopN})
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	if askJSON {
		return writeAnswerJSON(cmd.OutOrStdout(), answer)
	}
	printAnswer(cmd, answer, askShowContexts)
	return nil
}

type answerJSON struct {
	Query         string        `json:"query"`
	Title         string        `json:"title,omitempty"`
	Answer        string        `json:"answer"`
	Grounded      bool          `json:"grounded"`
	JudgeFailures int           `json:"judge_failures"`
	Contexts      []contextJSON `json:"contexts"`
}

type contextJSON struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Judged     bool    `json:"judged"`
	Distance   float64 `json:"distance"`
	Content    string  `json:"content"`
}

func writeAnswerJSON(w io.Writer, a *domain.Answer) error {
	out := answerJSON{
		Query:         a.Query,
		Title:         a.Title,
		Answer:        a.Answer,
		Grounded:      a.Grounded(),
		JudgeFailures: a.JudgeFailures,
		Contexts:      make([]contextJSON, 0, len(a.Contexts)),
	}
	for _, c := range a.Contexts {
		out.Contexts = append(out.Contexts, contextJSON{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Position:   c.Position,
			Score:      c.Score,
			Judged:     c.Judged,
			Distance:   c.Distance,
			Content:    c.Content,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printAnswer(cmd *cobra.Command, a *domain.Answer, showContexts bool) {
	cmd.Println(a.Answer)
	if a.JudgeFailures > 0 {
		cmd.PrintErrf("warning: %d context(s) could not be scored for relevance\n", a.JudgeFailures)
	}
	if !showContexts || len(a.Contexts) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Contexts:")
	for i, c := range a.Contexts {
		score := "unscored"
		if c.Judged {
			score = fmt.Sprintf("%g/10", c.Score)
		}
		cmd.Printf("  [%d] %s #%d (score %s, distance %.3f)\n", i+1, c.DocumentID, c.Position, score, c.Distance)
		cmd.Printf("      %s\n", truncate(strings.Join(strings.Fields(c.Content), " "), 160))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
