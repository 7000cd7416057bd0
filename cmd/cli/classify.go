package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/flowbaker/csvclassifier/internal/config"
	"github.com/flowbaker/csvclassifier/internal/initialization"
	"github.com/flowbaker/csvclassifier/pkg/batch"
	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/flowbaker/csvclassifier/pkg/tabular"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type classifyOptions struct {
	input            string
	output           string
	categoriesFile   string
	systemPromptFile string
	model            string
	strict           bool
	temperature      float64
	maxTokens        int
	noPrompt         bool
	preview          int
}

func NewClassifyCommand() *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify [input] [output]",
		Short: "Classify every row of a table",
		Long: `Classify reads the input table (CSV, TSV or XLSX), classifies each row in order and,
when an output path is given, writes the input columns plus category, confidence and reason.
The first failing row aborts the run and nothing is written.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.input = args[0]
			}
			if len(args) > 1 {
				opts.output = args[1]
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runClassify(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input table path")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output table path (optional, overwritten)")
	cmd.Flags().StringVar(&opts.categoriesFile, "categories", "", "YAML file mapping IDENTIFIER: description")
	cmd.Flags().StringVar(&opts.systemPromptFile, "system-prompt-file", "", "Replace the built-in system prompt")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model (or Azure deployment) name")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Validate every response against the output schema")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 0, "Sampling temperature between 0 and 2 (endpoint default when unset)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum tokens per response (0 for no limit)")
	cmd.Flags().BoolVar(&opts.noPrompt, "no-prompt", false, "Never ask for missing paths interactively")
	cmd.Flags().IntVar(&opts.preview, "preview", 5, "Number of result rows to preview")

	return cmd
}

func runClassify(ctx context.Context, cmd *cobra.Command, opts *classifyOptions) error {
	if opts.input == "" && !opts.noPrompt && isInteractive() {
		if err := promptForPaths(ctx, &opts.input, &opts.output); err != nil {
			return err
		}
	}

	if opts.input == "" {
		return fmt.Errorf("%w: no input file given", domain.ErrIO)
	}

	cfg, err := loadCommandConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("categories") {
		cfg.CategoriesFile = opts.categoriesFile
	}
	if cmd.Flags().Changed("system-prompt-file") {
		cfg.SystemPromptFile = opts.systemPromptFile
	}
	if cmd.Flags().Changed("model") {
		cfg.ModelName = opts.model
	}
	if cmd.Flags().Changed("strict") {
		cfg.StrictValidation = opts.strict
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature = strconv.FormatFloat(opts.temperature, 'f', -1, 64)
	}
	if cmd.Flags().Changed("max-tokens") {
		cfg.MaxTokens = opts.maxTokens
	}

	out := cmd.OutOrStdout()

	deps, err := initialization.NewClassifierContainer().BuildClassifierDependencies(ctx, initialization.ClassifierDependencyConfig{
		Config:   cfg,
		Progress: progressPrinter(out),
	})
	if err != nil {
		return err
	}

	table, err := deps.Tables.ReadFile(opts.input)
	if err != nil {
		return err
	}

	log.Info().
		Str("input", opts.input).
		Str("model", deps.Model.ID()).
		Int("rows", len(table.Rows)).
		Msg("Classifying table")

	var sink batch.Sink
	if opts.output != "" {
		sink = tabular.NewFileSink(deps.Tables, opts.output)
	}

	result, err := deps.Runner.Run(ctx, table, sink)
	if err != nil {
		return err
	}

	usage := deps.Classifier.Usage()
	log.Info().
		Int("rows", len(result.Rows)).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Msg("Classification finished")

	if opts.output != "" {
		fmt.Fprintf(out, "Saved results to %s\n", opts.output)
	}

	if opts.preview > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Classification results:")
		fmt.Fprintln(out, renderPreview(result, opts.preview))
	}

	return nil
}

func progressPrinter(out io.Writer) batch.ProgressFunc {
	return func(p batch.Progress) {
		fmt.Fprintf(out, "Row %d: %s (confidence: %.2f)\n", p.Index, p.Category, p.Confidence)
	}
}

// loadCommandConfig loads configuration and applies LOG_LEVEL unless
// --debug was given.
func loadCommandConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.LoadConfig(config.LoadOptions{EnvFile: envFile})
	if err != nil {
		return nil, err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); !debug && cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, keeping default")
		} else {
			zerolog.SetGlobalLevel(level)
		}
	}

	return cfg, nil
}
