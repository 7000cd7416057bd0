package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/mattn/go-isatty"
)

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptForPaths asks for the input path and an optional output path.
func promptForPaths(ctx context.Context, input, output *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Input CSV file path").
				Value(input).
				Validate(validateInputPath),
			huh.NewInput().
				Title("Output file path (optional)").
				Value(output),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("%w: input aborted", domain.ErrIO)
		}
		return fmt.Errorf("%w: prompt failed: %v", domain.ErrIO, err)
	}

	*input = strings.TrimSpace(*input)
	*output = strings.TrimSpace(*output)

	return nil
}

func validateInputPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("an input file is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	return nil
}
