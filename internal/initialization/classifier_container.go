package initialization

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/flowbaker/csvclassifier/internal/config"
	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/provider"
	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/provider/openai"
	"github.com/flowbaker/csvclassifier/pkg/batch"
	"github.com/flowbaker/csvclassifier/pkg/classifier"
	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/flowbaker/csvclassifier/pkg/tabular"

	"github.com/rs/zerolog/log"
)

type ClassifierDependencies struct {
	Model      provider.StructuredModel
	Categories domain.CategorySet
	Classifier *classifier.Classifier
	Runner     *batch.Runner
	Tables     *tabular.Registry
}

type ClassifierDependencyConfig struct {
	Config   *config.Config
	Progress batch.ProgressFunc

	// Model replaces the provider resolved from Config when set.
	Model provider.StructuredModel
}

type ClassifierContainer struct{}

func NewClassifierContainer() *ClassifierContainer {
	return &ClassifierContainer{}
}

func (c *ClassifierContainer) BuildClassifierDependencies(ctx context.Context, deps ClassifierDependencyConfig) (*ClassifierDependencies, error) {
	log.Debug().Msg("Building classifier dependencies")

	if deps.Config == nil {
		return nil, fmt.Errorf("%w: no configuration loaded", domain.ErrConfiguration)
	}

	categories, err := LoadCategories(deps.Config)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := loadSystemPrompt(deps.Config)
	if err != nil {
		return nil, err
	}

	model := deps.Model
	if model == nil {
		model, err = NewModel(deps.Config)
		if err != nil {
			return nil, err
		}
	}

	rowClassifier, err := classifier.New(model, categories, classifier.Options{
		SystemPrompt:     systemPrompt,
		StrictValidation: deps.Config.StrictValidation,
	})
	if err != nil {
		return nil, err
	}

	var runnerOpts []batch.Option
	if deps.Progress != nil {
		runnerOpts = append(runnerOpts, batch.WithProgress(deps.Progress))
	}

	log.Debug().
		Str("model", model.ID()).
		Int("categories", categories.Len()).
		Bool("strict", deps.Config.StrictValidation).
		Msg("Classifier dependencies built successfully")

	return &ClassifierDependencies{
		Model:      model,
		Categories: categories,
		Classifier: rowClassifier,
		Runner:     batch.NewRunner(rowClassifier, runnerOpts...),
		Tables:     tabular.NewDefaultRegistry(),
	}, nil
}

// NewModel builds the completion client for the resolved provider variant.
func NewModel(cfg *config.Config) (provider.StructuredModel, error) {
	settings, err := cfg.ResolveProvider()
	if err != nil {
		return nil, err
	}

	var opts []openai.Option
	if settings.Timeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: settings.Timeout}))
	}

	var p *openai.Provider
	switch settings.Kind {
	case config.ProviderAzure:
		p = openai.NewAzure(settings.Endpoint, settings.APIKey, settings.APIVersion, settings.Model, opts...)
	case config.ProviderOpenAI:
		opts = append(opts, openai.WithBaseURL(settings.Endpoint))
		p = openai.New(settings.APIKey, settings.Model, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, settings.Kind)
	}

	p.SetRequestSettings(openai.RequestSettings{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})

	return p, nil
}

// LoadCategories returns the categories file's set, or the built-in set when
// no file is configured.
func LoadCategories(cfg *config.Config) (domain.CategorySet, error) {
	if cfg.CategoriesFile == "" {
		return domain.DefaultCategorySet(), nil
	}

	return domain.LoadCategorySet(cfg.CategoriesFile)
}

func loadSystemPrompt(cfg *config.Config) (string, error) {
	if cfg.SystemPromptFile == "" {
		return "", nil
	}

	data, err := os.ReadFile(cfg.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read system prompt: %v", domain.ErrIO, err)
	}

	return string(data), nil
}
