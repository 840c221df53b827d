// Command validate checks vocabulary deck JSON files before they are dropped
// into the server's deck directory. It checks:
//   - JSON structure and required fields
//   - Every card has a word, an image reference and 1-6 taboo words
//   - Words are unique (case-insensitive) and never appear in their own taboo list
//   - The deck holds enough distinct words to deal a memory board
//
// It also reports warnings that do not make a deck invalid, such as missing
// translations or bare image keywords that the server expands to stock photos.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/spooky-vocab/game/deck"
	"github.com/wricardo/spooky-vocab/game/engine"
	"github.com/wricardo/spooky-vocab/game/oracle"
)

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateDeck loads and validates a single deck file against a board of pairs.
func validateDeck(filePath string, pairs int) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var d deck.Deck
	if err := json.Unmarshal(data, &d); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := deck.Validate(&d); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, splitErrors(err)...)
	} else if err := deck.Playable(&d, pairs); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot deal %d pairs: %v", pairs, err))
	}

	for i, card := range d.Cards {
		if strings.TrimSpace(card.Translation) == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("card %d (%s): no translation", i, card.Word))
		}
		if ref := strings.TrimSpace(card.ImageRef); ref != "" && !isURL(ref) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("card %d (%s): image %q will be served as %s",
				i, card.Word, ref, oracle.NormalizeImage(card).ImageRef))
		}
	}

	if result.Valid {
		taboo := 0
		for _, card := range d.Cards {
			taboo += len(card.TabooWords)
		}
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s", d.Name),
			fmt.Sprintf("✓ Cards: %d", len(d.Cards)),
			fmt.Sprintf("✓ Taboo words: %d", taboo),
			fmt.Sprintf("✓ Memory rounds of %d pairs: %s", pairs, roundVariety(len(d.Cards), pairs)),
		)
	}

	return result
}

// splitErrors flattens a joined validation error into one line per problem
func splitErrors(err error) []string {
	msg := strings.TrimPrefix(err.Error(), deck.ErrInvalidDeck.Error()+": ")
	var lines []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// roundVariety describes how much the board can change between rounds
func roundVariety(cards, pairs int) string {
	switch {
	case cards <= pairs:
		return "same words every round, shuffled"
	default:
		return fmt.Sprintf("%d of %d words per round", pairs, cards)
	}
}

// collectFiles expands the arguments into deck files. Directories contribute their *.json files.
func collectFiles(args []string, dir string) ([]string, error) {
	if len(args) == 0 {
		args = []string{dir}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func printResult(result ValidationResult) {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Info {
			fmt.Println("  " + info)
		}
	} else {
		fmt.Println("❌ INVALID")
		for _, err := range result.Errors {
			fmt.Println("  ❌ " + err)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Println("  ⚠️  " + warning)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate vocabulary deck files",
		ArgsUsage: "[file or directory ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../decks",
				Usage:   "deck directory scanned when no arguments are given",
				Sources: cli.EnvVars("DECK_DIR"),
			},
			&cli.IntFlag{
				Name:  "pairs",
				Value: engine.DefaultPairs,
				Usage: "pairs per memory board",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := collectFiles(cmd.Args().Slice(), cmd.String("dir"))
			if err != nil {
				return fmt.Errorf("error finding deck files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no deck files found")
			}

			allValid := true
			for _, file := range files {
				result := validateDeck(file, int(cmd.Int("pairs")))
				printResult(result)
				if !result.Valid {
					allValid = false
				}
			}

			fmt.Printf("\n%s\n", strings.Repeat("=", 40))
			if !allValid {
				return fmt.Errorf("❌ Some decks have errors")
			}
			fmt.Println("✅ All decks are valid!")
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
