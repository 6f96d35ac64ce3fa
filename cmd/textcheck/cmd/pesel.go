package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel"
)

func newPeselCmd() *cobra.Command {
	var showCheckDigit bool

	cmd := &cobra.Command{
		Use:   "pesel [NUMBER...]",
		Short: "Verify the check digit of PESEL numbers",
		Long: `Verify prints 1 for every number whose last digit matches the weighted
checksum of the first ten digits and 0 otherwise.

Without arguments a single number is read from stdin. A number that is not
exactly eleven digits is an error.`,
		Example: `  textcheck pesel 44051401359
  echo 97082123152 | textcheck pesel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers := args
			if len(numbers) == 0 {
				number, err := readNumber(cmd.InOrStdin())
				if err != nil {
					return err
				}
				numbers = []string{number}
			}
			return runPesel(cmd.OutOrStdout(), numbers, showCheckDigit)
		},
	}

	cmd.Flags().BoolVar(&showCheckDigit, "check-digit", false, "Also print the expected check digit")

	return cmd
}

func runPesel(w io.Writer, numbers []string, showCheckDigit bool) error {
	for _, number := range numbers {
		number = strings.TrimSpace(number)
		valid, err := pesel.Verify(number)
		if err != nil {
			return fmt.Errorf("verifying %q: %w", pesel.Mask(number), err)
		}
		slog.Debug("pesel verified", "pesel", pesel.Mask(number), "valid", valid)
		if !showCheckDigit {
			fmt.Fprintln(w, valid)
			continue
		}
		digit, err := pesel.CheckDigit(number)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d %d\n", valid, digit)
	}
	return nil
}

func readNumber(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", fmt.Errorf("no PESEL number given")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
