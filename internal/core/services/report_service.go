package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/utils"
	"communityhub/pkg/validation"
)

const (
	maxReporterLength = 100
	maxReasonLength   = 2000
)

type ReportService struct {
	repo   ports.ReportRepository
	clock  utils.Clock
	logger *zap.SugaredLogger
}

func NewReportService(repo ports.ReportRepository, clock utils.Clock, logger *zap.SugaredLogger) *ReportService {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &ReportService{repo: repo, clock: clock, logger: logger}
}

// Submit validates and stores a report, returning it with its new id
func (s *ReportService) Submit(ctx context.Context, input domain.ReportInput) (*domain.Report, error) {
	input.Reporter = strings.TrimSpace(input.Reporter)
	input.Reported = strings.TrimSpace(input.Reported)
	input.Reason = strings.TrimSpace(input.Reason)

	if err := validation.ValidateNonEmptyString(input.Reason, "reason"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.ValidateStringLength(input.Reason, 1, maxReasonLength, "reason"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.ValidateStringLength(input.Reporter, 0, maxReporterLength, "reporter"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := validation.ValidateStringLength(input.Reported, 0, maxReporterLength, "reported"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	report, err := s.repo.Create(ctx, input, s.clock())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	s.logger.Infow("Report received",
		"report_id", report.ID,
		"has_evidence", report.EvidenceFile != nil,
	)
	return report, nil
}

func (s *ReportService) List(ctx context.Context) ([]*domain.Report, error) {
	reports, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if reports == nil {
		reports = []*domain.Report{}
	}
	return reports, nil
}
