package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/classifier"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/storage"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/tabular"
)

// TextColumn is the column an uploaded file must carry.
const TextColumn = "text"

// ArtifactReader reads a model or dataset artifact by location.
type ArtifactReader interface {
	ReadAll(ctx context.Context, raw, sha256Hex string) ([]byte, storage.Location, error)
}

// LoadClassifier reads and parses the model artifact named by cfg.
func LoadClassifier(ctx context.Context, r ArtifactReader, cfg config.ModelConfig) (*classifier.NaiveBayes, error) {
	data, _, err := r.ReadAll(ctx, cfg.Location, cfg.SHA256)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return classifier.Load(data)
}

// PredictionService classifies free text and uploaded tables.
type PredictionService struct {
	classifier classifier.Classifier
	metrics    *metrics.Metrics
	now        func() time.Time
	logger     zerolog.Logger
}

// NewPredictionService creates a new PredictionService.
// A nil classifier makes every prediction fail with ErrModelUnavailable.
func NewPredictionService(c classifier.Classifier, m *metrics.Metrics, logger zerolog.Logger) *PredictionService {
	return &PredictionService{
		classifier: c,
		metrics:    m,
		now:        time.Now,
		logger:     logger.With().Str("service", "prediction").Logger(),
	}
}

// PredictTextOutput contains the label of one text.
type PredictTextOutput struct {
	Text    string
	Label   string
	Elapsed time.Duration
}

// PredictText classifies a single text.
func (s *PredictionService) PredictText(ctx context.Context, text string) (*PredictTextOutput, error) {
	if s.classifier == nil {
		return nil, ErrModelUnavailable
	}
	if err := domain.RequireFields("text", text); err != nil {
		return nil, err
	}

	start := s.now()
	labels, err := s.classifier.Predict(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	elapsed := s.now().Sub(start)

	s.metrics.ObservePrediction("text", 1, elapsed)
	s.logger.Debug().Str("label", labels[0]).Dur("elapsed", elapsed).Msg("text classified")

	return &PredictTextOutput{Text: text, Label: labels[0], Elapsed: elapsed}, nil
}

// LabelCount is the number of rows carrying one label.
type LabelCount struct {
	Label   string
	Count   int
	Percent float64
}

// PredictTableOutput contains the labels of every row of a table.
type PredictTableOutput struct {
	Texts        []string
	Labels       []string
	Distribution []LabelCount
	Elapsed      time.Duration
}

// PredictTable classifies the text column of t.
func (s *PredictionService) PredictTable(ctx context.Context, t *tabular.Table) (*PredictTableOutput, error) {
	if s.classifier == nil {
		return nil, ErrModelUnavailable
	}
	if t == nil {
		return nil, domain.NewValidationError(TextColumn)
	}
	texts, ok := t.Column(TextColumn)
	if !ok {
		return nil, domain.NewValidationError(TextColumn)
	}

	start := s.now()
	labels, err := s.classifier.Predict(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	elapsed := s.now().Sub(start)

	s.metrics.ObservePrediction("file", len(texts), elapsed)
	s.logger.Info().Int("rows", len(texts)).Dur("elapsed", elapsed).Msg("table classified")

	return &PredictTableOutput{
		Texts:        texts,
		Labels:       labels,
		Distribution: CountLabels(labels),
		Elapsed:      elapsed,
	}, nil
}

// CountLabels counts each distinct label, most frequent first.
// Ties are ordered by label.
func CountLabels(labels []string) []LabelCount {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[strings.TrimSpace(l)]++
	}

	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{
			Label:   label,
			Count:   n,
			Percent: float64(n) * 100 / float64(len(labels)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
