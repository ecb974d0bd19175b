package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/models"
)

const noHistoryMessage = "Historical data collection not yet started. Check back after data has been collected."

// Comparison sets the live balance against the stored history for today's day of month
func (s *Service) Comparison(ctx context.Context) (*models.ComparisonData, apperr.Step, error) {
	bal, step, err := s.CurrentBalance(ctx)
	if err != nil {
		return nil, step, err
	}
	return s.comparisonFor(ctx, bal)
}

func (s *Service) comparisonFor(ctx context.Context, bal *models.Balance) (*models.ComparisonData, apperr.Step, error) {
	prefs, err := s.store.GetPreferences(ctx)
	if err != nil {
		return nil, apperr.StepPreferences, err
	}

	today := s.today()
	res, err := s.compare.Compare(ctx, today, today.Day(), prefs.MedianWindowMonths, prefs.AverageWindowMonths)
	if err != nil {
		return nil, apperr.StepHistory, err
	}

	data := &models.ComparisonData{
		CurrentBalance:          bal.Amount,
		Currency:                bal.Currency,
		Date:                    bal.ReferenceDate,
		DayOfMonth:              today.Day(),
		Median:                  res.Median,
		Average:                 res.Average,
		MedianWindowMonths:      prefs.MedianWindowMonths,
		AverageWindowMonths:     prefs.AverageWindowMonths,
		HistoricalDataAvailable: res.Coverage,
	}
	if !res.Coverage {
		data.Message = noHistoryMessage
	}
	return data, "", nil
}

func (s *Service) sendDigest(ctx context.Context, bal *models.Balance) {
	data, step, err := s.comparisonFor(ctx, bal)
	if err != nil {
		s.log.Warnf("Skipping digest, %s step failed: %v", step, err)
		return
	}
	if err := s.notifier.SendDigest(ctx, data); err != nil {
		s.log.Errorf("Failed to send digest: %v", err)
	}
}

// Preferences returns the comparison windows
func (s *Service) Preferences(ctx context.Context) (models.Preferences, error) {
	return s.store.GetPreferences(ctx)
}

// UpdatePreferences saves new comparison windows
func (s *Service) UpdatePreferences(ctx context.Context, p models.Preferences) error {
	if err := s.store.SavePreferences(ctx, p); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	s.log.Infof("Preferences updated: median %d months, average %d months", p.MedianWindowMonths, p.AverageWindowMonths)
	return nil
}
