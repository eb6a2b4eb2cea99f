// Package prospecting runs the analyze, score and report pipeline for single
// wallets and for lists of wallets.
package prospecting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/songzhibin97/prospector/internal/ai"
	"github.com/songzhibin97/prospector/internal/data"
	"github.com/songzhibin97/prospector/internal/models"
	"github.com/songzhibin97/prospector/internal/scoring"
)

const (
	DefaultConcurrency = 4

	// DemoAddress is a well-known public wallet used by the demo report.
	DemoAddress = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
	DemoNote    = "This is a demo using a well-known public wallet address."

	lastActiveUnknown = "unknown"

	topSignals  = 3
	topConcerns = 3
	topSteps    = 2
)

// ErrNoWatchlist is returned by DiscoverFromWatchlist when no address source
// is configured.
var ErrNoWatchlist = errors.New("no watchlist source configured")

// WalletAnalyzer builds a metrics snapshot for one address.
type WalletAnalyzer interface {
	AnalyzeWallet(ctx context.Context, address string) (*models.WalletMetrics, error)
}

// Recorder receives every produced score.
type Recorder interface {
	ObserveScore(tier models.RiskTier, overallScore float64)
}

type Options struct {
	Concurrency int
	Watchlist   data.AddressSource
	Writer      ai.OutreachWriter
	Recorder    Recorder
	Now         func() time.Time
	NewID       func() string
}

// Service is the prospecting orchestrator.
type Service struct {
	analyzer    WalletAnalyzer
	prices      data.PriceFeed
	scorer      scoring.Scorer
	watchlist   data.AddressSource
	writer      ai.OutreachWriter
	recorder    Recorder
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

func NewService(analyzer WalletAnalyzer, prices data.PriceFeed, scorer scoring.Scorer, logger *slog.Logger, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Service{
		analyzer:    analyzer,
		prices:      prices,
		scorer:      scorer,
		watchlist:   opts.Watchlist,
		writer:      opts.Writer,
		recorder:    opts.Recorder,
		logger:      logger.With("component", "prospecting"),
		concurrency: opts.Concurrency,
		now:         opts.Now,
		newID:       opts.NewID,
	}
}

// HasWatchlist reports whether DiscoverFromWatchlist can run.
func (s *Service) HasWatchlist() bool {
	return s.watchlist != nil
}

// AnalyzeWallet returns a fresh metrics snapshot.
func (s *Service) AnalyzeWallet(ctx context.Context, address string) (*models.WalletMetrics, error) {
	return s.analyzer.AnalyzeWallet(ctx, address)
}

// ScoreForMortgage analyzes the wallet and scores it.
func (s *Service) ScoreForMortgage(ctx context.Context, address string) (*models.MortgageQualificationScore, error) {
	_, score, err := s.evaluate(ctx, address)
	return score, err
}

// evaluate scores the snapshot it just built, so metrics and score always
// describe the same data.
func (s *Service) evaluate(ctx context.Context, address string) (*models.WalletMetrics, *models.MortgageQualificationScore, error) {
	metrics, err := s.analyzer.AnalyzeWallet(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	return metrics, s.score(ctx, metrics), nil
}

// score values liquidity at the price the snapshot was built with.
func (s *Service) score(ctx context.Context, metrics *models.WalletMetrics) *models.MortgageQualificationScore {
	price := metrics.ETHPriceUSD
	if price <= 0 {
		price = s.prices.Price(ctx)
	}
	score := s.scorer.Score(metrics, price)
	if s.recorder != nil {
		s.recorder.ObserveScore(score.RiskTier, score.OverallScore)
	}
	return score
}

// BatchAnalyze scores every address independently. A failing address yields a
// row with its error and a zero score. Rows are sorted by overall score,
// highest first; ties keep input order.
func (s *Service) BatchAnalyze(ctx context.Context, addresses []string) []models.BatchResult {
	results := make([]models.BatchResult, len(addresses))

	s.forEach(addresses, func(i int, address string) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("batch item panicked", "address", address, "panic", r)
				results[i] = models.BatchResult{WalletAddress: address, Error: fmt.Sprintf("internal error: %v", r)}
			}
		}()

		score, err := s.ScoreForMortgage(ctx, address)
		if err != nil {
			results[i] = models.BatchResult{WalletAddress: address, Error: err.Error()}
			return
		}
		results[i] = models.BatchResult{
			MortgageQualificationScore: score,
			WalletAddress:              score.WalletAddress,
			OverallScore:               score.OverallScore,
		}
	})

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
	return results
}

// DiscoverProspects keeps the addresses whose value is at least minValueUSD
// and whose overall score is at least minScore. Addresses that fail are
// dropped. Leads are sorted by score, highest first.
func (s *Service) DiscoverProspects(ctx context.Context, addresses []string, minValueUSD, minScore float64) []models.ProspectLead {
	found := make([]*models.ProspectLead, len(addresses))

	s.forEach(addresses, func(i int, address string) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("discovery item panicked", "address", address, "panic", r)
			}
		}()

		metrics, err := s.analyzer.AnalyzeWallet(ctx, address)
		if err != nil {
			s.logger.Debug("discovery skipped address", "address", address, "error", err)
			return
		}
		if metrics.TotalValueUSD < minValueUSD {
			return
		}

		score := s.score(ctx, metrics)
		if score.OverallScore < minScore {
			return
		}
		found[i] = newLead(address, metrics, score)
	})

	leads := make([]models.ProspectLead, 0, len(found))
	for _, l := range found {
		if l != nil {
			leads = append(leads, *l)
		}
	}
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].QualificationScore > leads[j].QualificationScore
	})
	return leads
}

// DiscoverFromWatchlist loads up to limit addresses from the named watchlist
// and runs discovery over them.
func (s *Service) DiscoverFromWatchlist(ctx context.Context, list string, limit int, minValueUSD, minScore float64) ([]string, []models.ProspectLead, error) {
	if s.watchlist == nil {
		return nil, nil, ErrNoWatchlist
	}

	addresses, err := s.watchlist.ListAddresses(ctx, list, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("load watchlist %q: %w", list, err)
	}

	return addresses, s.DiscoverProspects(ctx, addresses, minValueUSD, minScore), nil
}

// GenerateProspectReport builds the full report for one wallet. When
// withDraft is set and a writer is configured, an outreach draft is attached;
// a failed draft only leaves the field empty.
func (s *Service) GenerateProspectReport(ctx context.Context, address string, withDraft bool) (*models.ProspectReport, error) {
	metrics, score, err := s.evaluate(ctx, address)
	if err != nil {
		return nil, err
	}

	report := &models.ProspectReport{
		ReportID:           s.newID(),
		ReportGenerated:    s.now().UTC(),
		WalletAnalysis:     metrics,
		QualificationScore: score,
		Summary: models.ReportSummary{
			Qualified:            score.RiskTier.Qualified(),
			Priority:             score.OutreachPriority,
			EstimatedOpportunity: score.MaxMortgageAmount,
			KeyStrengths:         head(score.PositiveSignals, topSignals),
			KeyConcerns:          head(score.RiskFlags, topConcerns),
			NextSteps:            head(score.Recommendations, topSteps),
		},
	}

	if withDraft && s.writer != nil {
		draft, err := s.writer.DraftOutreach(ctx, metrics, score)
		if err != nil {
			s.logger.Warn("outreach draft failed", "address", address, "error", err)
		} else {
			report.OutreachDraft = draft
		}
	}

	return report, nil
}

// DemoReport is the report for DemoAddress, marked as a demo.
func (s *Service) DemoReport(ctx context.Context) (*models.ProspectReport, error) {
	report, err := s.GenerateProspectReport(ctx, DemoAddress, false)
	if err != nil {
		return nil, err
	}
	report.DemoNote = DemoNote
	return report, nil
}

// forEach runs fn for every address with bounded parallelism and waits.
func (s *Service) forEach(addresses []string, fn func(i int, address string)) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, address := range addresses {
		g.Go(func() error {
			fn(i, address)
			return nil
		})
	}
	_ = g.Wait()
}

func newLead(address string, m *models.WalletMetrics, score *models.MortgageQualificationScore) *models.ProspectLead {
	lastActive := lastActiveUnknown
	if m.LastTransactionDate != nil {
		lastActive = m.LastTransactionDate.UTC().Format(time.RFC3339)
	}

	return &models.ProspectLead{
		WalletAddress:      address,
		QualificationScore: score.OverallScore,
		RiskTier:           score.RiskTier,
		EstimatedValue:     m.TotalValueUSD,
		BehaviorType:       m.BehaviorType,
		ContactMethods:     score.ContactMethods,
		LastActive:         lastActive,
		Priority:           score.OutreachPriority,
		Notes:              head(score.PositiveSignals, topSignals),
	}
}

// head returns at most n leading items, never nil.
func head(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
