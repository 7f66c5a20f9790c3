package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/tabular"
)

// Dataset columns.
const (
	LabelColumn = "sentiment_label"
)

// Normalised sentiment classes.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// NormalizeSentiment maps English and Indonesian label spellings onto one class.
// The second result is false for labels of neither class.
func NormalizeSentiment(label string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive", "positif":
		return SentimentPositive, true
	case "negative", "negatif":
		return SentimentNegative, true
	default:
		return "", false
	}
}

// DatasetLoader produces the labelled dataset.
type DatasetLoader func(ctx context.Context) (*tabular.Table, error)

// NewDatasetLoader reads the dataset at location through r.
func NewDatasetLoader(r ArtifactReader, location string) DatasetLoader {
	return func(ctx context.Context) (*tabular.Table, error) {
		data, loc, err := r.ReadAll(ctx, location, "")
		if err != nil {
			return nil, err
		}
		return tabular.Read(loc.Base(), bytes.NewReader(data))
	}
}

// WordCount is the number of occurrences of one word.
type WordCount struct {
	Word  string
	Count int
}

// Report holds the statistics shown on the about screen.
type Report struct {
	Title       string
	Description string
	Total       int
	Preview     *tabular.Table
	Labels      []LabelCount

	TopPositive []WordCount
	TopNegative []WordCount
	TopAll      []WordCount

	Evaluation config.EvaluationConfig
}

// ReportService builds the report from the labelled dataset.
// The dataset is read on first use and the result kept; a failed read is
// retried on the next call.
type ReportService struct {
	load   DatasetLoader
	cfg    config.ReportConfig
	logger zerolog.Logger

	mu     sync.Mutex
	report *Report
}

// NewReportService creates a new ReportService.
func NewReportService(load DatasetLoader, cfg config.ReportConfig, logger zerolog.Logger) *ReportService {
	return &ReportService{
		load:   load,
		cfg:    cfg,
		logger: logger.With().Str("service", "report").Logger(),
	}
}

// Report returns the report, reading the dataset if needed.
func (s *ReportService) Report(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report != nil {
		return s.report, nil
	}

	t, err := s.load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("dataset", s.cfg.Dataset).Msg("failed to load dataset")
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	report, err := s.build(t)
	if err != nil {
		s.logger.Error().Err(err).Str("dataset", s.cfg.Dataset).Msg("invalid dataset")
		return nil, err
	}

	s.logger.Info().Int("rows", report.Total).Msg("report built")
	s.report = report
	return report, nil
}

func (s *ReportService) build(t *tabular.Table) (*Report, error) {
	labels, ok := t.Column(LabelColumn)
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", ErrInvalidDataset, LabelColumn)
	}
	texts, ok := t.Column(TextColumn)
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", ErrInvalidDataset, TextColumn)
	}

	var positive, negative []string
	for i, label := range labels {
		switch class, _ := NormalizeSentiment(label); class {
		case SentimentPositive:
			positive = append(positive, texts[i])
		case SentimentNegative:
			negative = append(negative, texts[i])
		}
	}

	return &Report{
		Title:       s.cfg.Title,
		Description: s.cfg.Description,
		Total:       t.Len(),
		Preview:     t.Head(s.cfg.PreviewRows),
		Labels:      CountLabels(labels),
		TopPositive: TopWords(positive, s.cfg.TopWords),
		TopNegative: TopWords(negative, s.cfg.TopWords),
		TopAll:      TopWords(texts, s.cfg.TopWords),
		Evaluation:  s.cfg.Evaluation,
	}, nil
}

// TopWords returns the n most frequent whitespace-separated words of texts.
// Words are case-sensitive; ties keep the order in which words first appear.
func TopWords(texts []string, n int) []WordCount {
	index := make(map[string]int)
	var counts []WordCount
	for _, text := range texts {
		for _, w := range strings.Fields(text) {
			if i, ok := index[w]; ok {
				counts[i].Count++
				continue
			}
			index[w] = len(counts)
			counts = append(counts, WordCount{Word: w, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
