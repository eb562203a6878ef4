package service

import (
	"context"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
)

const topSubSystemLimit = 10

// ReportService aggregates stored events into per-sub-system and
// per-partner summaries.
type ReportService struct {
	repo repository.Repository
}

func NewReportService(repo repository.Repository) *ReportService {
	return &ReportService{repo: repo}
}

// SubSystemReport summarizes one sub-system over [start, end).
func (s *ReportService) SubSystemReport(ctx context.Context, subSystemID string, start, end time.Time) (*models.SubSystemReport, error) {
	subSystem, err := s.repo.GetSubSystem(ctx, subSystemID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountEventsBySubSystem(ctx, subSystemID, start, end)
	if err != nil {
		return nil, err
	}
	typeCounts, err := s.repo.EventTypeCounts(ctx, subSystemID, start, end)
	if err != nil {
		return nil, err
	}
	buckets, err := s.repo.EventTimeSeriesBySubSystem(ctx, subSystemID, start, end)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int64, len(typeCounts))
	for _, tc := range typeCounts {
		byType[tc.EventType.String()] = tc.Count
	}

	return &models.SubSystemReport{
		SubSystemID:   subSystem.ID,
		SubSystemName: subSystem.Name,
		TotalEvents:   total,
		EventsByType:  byType,
		TimeSeries:    toTimeSeries(buckets),
	}, nil
}

// PartnerReport summarizes a partner's whole event stream over
// [start, end), including its busiest sub-systems.
func (s *ReportService) PartnerReport(ctx context.Context, partnerID string, start, end time.Time) (*models.PartnerReport, error) {
	partner, err := s.repo.GetPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountEventsByPartner(ctx, partnerID, start, end)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopSubSystems(ctx, partnerID, start, end, topSubSystemLimit)
	if err != nil {
		return nil, err
	}
	buckets, err := s.repo.EventTimeSeriesByPartner(ctx, partnerID, start, end)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SubSystemSummary, 0, len(top))
	for _, sc := range top {
		summaries = append(summaries, models.SubSystemSummary{
			SubSystemID:   sc.SubSystemID,
			SubSystemName: sc.SubSystemName,
			EventCount:    sc.Count,
		})
	}

	return &models.PartnerReport{
		PartnerID:     partner.ID,
		PartnerName:   partner.Name,
		TotalEvents:   total,
		TopSubSystems: summaries,
		TimeSeries:    toTimeSeries(buckets),
	}, nil
}

func toTimeSeries(buckets []repository.TimeBucket) []models.TimeSeriesData {
	series := make([]models.TimeSeriesData, 0, len(buckets))
	for _, b := range buckets {
		series = append(series, models.TimeSeriesData{Timestamp: b.Timestamp, Count: b.Count})
	}
	return series
}
