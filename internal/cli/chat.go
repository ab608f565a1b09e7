package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"reportrag/internal/models"
	"reportrag/internal/util"
)

const contextPreviewRunes = 600

// Querier is satisfied by *router.Router.
type Querier interface {
	Route(ctx context.Context, query string, mode models.Mode) models.QueryResult
}

var exitWords = map[string]bool{"exit": true, "quit": true, "q": true}

// Chat reads one question per line from in until EOF or an exit word and
// prints a context preview and the answer for each.
func Chat(ctx context.Context, q Querier, in io.Reader, out io.Writer, mode models.Mode) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "\nPlease enter your question (type 'exit' to quit):\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if exitWords[strings.ToLower(query)] {
			fmt.Fprintln(out, "Exited report Q&A.")
			return nil
		}
		if query == "" {
			fmt.Fprintln(out, "Question cannot be empty. Please try again.")
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		PrintResult(out, q.Route(ctx, query, mode))
	}
}

// PrintResult renders a QueryResult for the terminal.
func PrintResult(out io.Writer, res models.QueryResult) {
	if res.Context != "" {
		fmt.Fprintln(out, "\n========= Retrieved context preview =========")
		fmt.Fprintln(out, util.DisplaySnippet(res.Context, contextPreviewRunes))
	}
	fmt.Fprintf(out, "\n========= %s =========\n", res.Agent)
	if res.Answer != "" {
		fmt.Fprintln(out, res.Answer)
	}
	if !res.Success && res.Error != "" {
		fmt.Fprintf(out, "[Error] %s\n", res.Error)
	}
}
