package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/interrogation-engine/pkg/profile"
	"github.com/jwebster45206/interrogation-engine/pkg/prompts"
)

var errInvalid = errors.New("one or more case files are invalid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	lenient  bool
	preview  string
	question string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "validate [case file or directory...]",
		Short: "Validate interrogation case files",
		Long: `Checks that each case file decodes, that ids are lowercase snake_case,
that every character has a name and a known role, that personality
intensities lie in [0,1] and that the case has a culprit.

Directories are searched for .json, .yaml and .yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.OutOrStdout(), args, opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.lenient, "lenient", false, "ignore unknown fields in case files")
	cmd.Flags().StringVar(&opts.preview, "preview", "", "print the prompt composed for this character id")
	cmd.Flags().StringVar(&opts.question, "question", "Where were you at the time of the murder?", "question used for --preview")
	return cmd
}

func run(out io.Writer, args []string, opts *options) error {
	files, err := expand(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no case files found in %s", strings.Join(args, ", "))
	}

	failed := 0
	for _, file := range files {
		kase, problems := validateFile(file, !opts.lenient)
		if len(problems) > 0 {
			failed++
			fmt.Fprintf(out, "✗ %s\n", file)
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			continue
		}
		fmt.Fprintf(out, "✓ %s (%d characters)\n", file, len(kase.Characters))

		if opts.preview != "" {
			if err := preview(out, kase, opts.preview, opts.question); err != nil {
				fmt.Fprintf(out, "  - %v\n", err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", errInvalid, failed, len(files))
	}
	return nil
}

// expand replaces directory arguments with the case files they contain.
func expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, err := profile.FormatFromPath(e.Name()); err == nil {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}

func validateFile(path string, strict bool) (*profile.Case, []string) {
	format, err := profile.FormatFromPath(path)
	if err != nil {
		return nil, []string{err.Error()}
	}

	var problems []string
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !isValidCaseFilename(name) {
		problems = append(problems, fmt.Sprintf("filename %q must be lowercase snake_case", filepath.Base(path)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, append(problems, fmt.Sprintf("failed to read file: %v", err))
	}

	decode := profile.DecodeCase
	if strict {
		decode = profile.DecodeCaseStrict
	}
	kase, err := decode(data, format)
	if err != nil {
		return nil, append(problems, err.Error())
	}
	if kase.ID != "" && kase.ID != name {
		problems = append(problems, fmt.Sprintf("case id %q does not match filename; the filename wins when loading", kase.ID))
	}
	if kase.ID == "" {
		kase.ID = name
	}

	return kase, append(problems, kase.Validate()...)
}

func preview(out io.Writer, kase *profile.Case, characterID, question string) error {
	c, ok := kase.Character(characterID)
	if !ok {
		return fmt.Errorf("no character %q in case", characterID)
	}
	prompt, err := prompts.New().
		WithCharacter(c).
		WithVictim(kase.Victim).
		WithQuestion(question).
		Build()
	if err != nil {
		return fmt.Errorf("failed to compose prompt: %w", err)
	}
	fmt.Fprintf(out, "\n--- prompt for %s ---\n%s\n--- end ---\n\n", c.Name, prompt)
	return nil
}

func isValidCaseFilename(name string) bool {
	// Allow 'x.' prefix for experimental cases
	name = strings.TrimPrefix(name, "x.")
	return profile.ValidID(name)
}
