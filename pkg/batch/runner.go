// Package batch drives the sequential classification of a whole table.
package batch

import (
	"context"

	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type RowClassifier interface {
	Classify(ctx context.Context, row domain.Row) (domain.ClassificationResult, error)
}

// Sink persists a completed result table.
type Sink interface {
	Write(ctx context.Context, table domain.ResultTable) error
}

// Progress is reported after each successfully classified row. Index is
// 1-based.
type Progress struct {
	Index      int
	Total      int
	Category   string
	Confidence float64
}

type ProgressFunc func(Progress)

type Runner struct {
	classifier RowClassifier
	onProgress ProgressFunc
}

type Option func(*Runner)

func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.onProgress = fn
	}
}

func NewRunner(classifier RowClassifier, opts ...Option) *Runner {
	r := &Runner{classifier: classifier}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run classifies every row in order. The first failure aborts the run and
// nothing is written to sink; sink may be nil.
func (r *Runner) Run(ctx context.Context, table domain.Table, sink Sink) (domain.ResultTable, error) {
	logger := log.With().Str("run_id", uuid.NewString()).Logger()

	result := domain.NewResultTable(table.Columns)
	result.Rows = make([]domain.OutputRow, 0, len(table.Rows))

	logger.Info().Int("rows", len(table.Rows)).Msg("Starting classification run")

	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return domain.ResultTable{}, &domain.RowError{Index: i + 1, Err: err}
		}

		classification, err := r.classifier.Classify(ctx, row)
		if err != nil {
			logger.Error().Err(err).Int("row", i+1).Msg("Classification failed, aborting run")
			return domain.ResultTable{}, &domain.RowError{Index: i + 1, Err: err}
		}

		result.Rows = append(result.Rows, domain.NewOutputRow(row, classification))

		logger.Debug().
			Int("row", i+1).
			Str("category", classification.Category).
			Float64("confidence", classification.Confidence).
			Msg("Row classified")

		if r.onProgress != nil {
			r.onProgress(Progress{
				Index:      i + 1,
				Total:      len(table.Rows),
				Category:   classification.Category,
				Confidence: classification.Confidence,
			})
		}
	}

	if sink != nil {
		if err := sink.Write(ctx, result); err != nil {
			return domain.ResultTable{}, err
		}
	}

	logger.Info().Int("rows", len(result.Rows)).Msg("Classification run finished")

	return result, nil
}
