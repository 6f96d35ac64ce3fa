package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/indexer"
)

const maxLineBytes = 1 << 20

var errUnexpectedEOF = errors.New("unexpected end of input")

func newIndexCmd() *cobra.Command {
	var promptMode string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index documents and answer single-word queries from stdin",
		Long: `Index reads, one per line: the number of documents, the documents, the
number of queries and the queries. It prints one result list per query, the
documents containing the word ordered by occurrence count and then by
document number, both descending.`,
		Example: `  printf '3\ncat dog cat\ndog dog\ncat\n3\ncat\ndog\nbird\n' | textcheck index`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			show, err := showPrompts(promptMode, in)
			if err != nil {
				return err
			}
			prompt := io.Discard
			if show {
				prompt = cmd.ErrOrStderr()
			}
			return runIndex(in, cmd.OutOrStdout(), prompt)
		},
	}
	cmd.Flags().StringVar(&promptMode, "prompt", "auto", "print input prompts to stderr: auto, always or never")
	return cmd
}

// showPrompts resolves the --prompt flag. In auto mode prompts are shown only
// when input comes from a terminal.
func showPrompts(mode string, in io.Reader) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := in.(*os.File)
		if !ok {
			return false, nil
		}
		fd := f.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("invalid --prompt value %q", mode)
	}
}

func runIndex(in io.Reader, out, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	fmt.Fprint(prompt, "Number of documents: ")
	n, err := readCount(scanner)
	if err != nil {
		return fmt.Errorf("reading document count: %w", err)
	}
	fmt.Fprintln(prompt, "Enter the documents:")
	documents, err := readLines(scanner, n, false)
	if err != nil {
		return fmt.Errorf("reading documents: %w", err)
	}

	fmt.Fprint(prompt, "Number of queries: ")
	m, err := readCount(scanner)
	if err != nil {
		return fmt.Errorf("reading query count: %w", err)
	}
	fmt.Fprintln(prompt, "Enter the queries:")
	queries, err := readLines(scanner, m, true)
	if err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}

	results := indexer.IndexDocuments(documents, queries)
	slog.Debug("queries answered", "documents", len(documents), "queries", len(queries))

	fmt.Fprintln(prompt, "Results:")
	for _, res := range results {
		fmt.Fprintln(out, formatResult(res))
	}
	return nil
}

func readCount(scanner *bufio.Scanner) (int, error) {
	line, err := nextLine(scanner)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", line)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative, got %d", n)
	}
	return n, nil
}

func readLines(scanner *bufio.Scanner, n int, trim bool) ([]string, error) {
	// n comes from the user, so it does not size the slice.
	var lines []string
	for range n {
		line, err := nextLine(scanner)
		if err != nil {
			return nil, err
		}
		if trim {
			line = strings.TrimSpace(line)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func nextLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errUnexpectedEOF
	}
	return strings.TrimSuffix(scanner.Text(), "\r"), nil
}

// formatResult renders ids as "[0, 2]".
func formatResult(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
