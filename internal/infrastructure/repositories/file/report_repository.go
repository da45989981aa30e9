package file

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
	"communityhub/pkg/storage"
	"communityhub/pkg/utils"
)

const (
	reportFileName  = "report.json"
	maxIDCollisions = 1000
)

// ReportRepository keeps every report in its own directory named by id,
// holding report.json and the optional evidence file
type ReportRepository struct {
	storage *storage.FileStorage
	logger  *zap.SugaredLogger
}

func NewReportRepository(s *storage.FileStorage, logger *zap.SugaredLogger) ports.ReportRepository {
	return &ReportRepository{storage: s, logger: logger}
}

func (r *ReportRepository) Create(ctx context.Context, input domain.ReportInput, createdAt time.Time) (*domain.Report, error) {
	id, err := r.allocate(ctx, createdAt)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:        id,
		Reporter:  input.Reporter,
		Reported:  input.Reported,
		Reason:    input.Reason,
		CreatedAt: createdAt.UTC(),
	}

	if ev := input.Evidence; ev != nil && ev.Content != nil {
		name := utils.SafeFileName(ev.FileName)
		if name == reportFileName {
			name = "evidence_" + name
		}
		if err := r.storage.Save(ctx, path.Join(id, name), ev.Content); err != nil {
			return nil, fmt.Errorf("failed to store evidence: %w", err)
		}
		report.EvidenceFile = &name
	}

	if err := storage.SaveJSON(ctx, r.storage, path.Join(id, reportFileName), report); err != nil {
		return nil, err
	}
	return report, nil
}

// allocate reserves a directory named after createdAt in milliseconds,
// moving one millisecond forward while the name is taken
func (r *ReportRepository) allocate(ctx context.Context, createdAt time.Time) (string, error) {
	base := createdAt.UnixMilli()
	for i := int64(0); i < maxIDCollisions; i++ {
		id := utils.GenerateReportID(time.UnixMilli(base + i))
		err := r.storage.CreateDir(ctx, id)
		if err == nil {
			return id, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	return "", fmt.Errorf("no free report id near %d", base)
}

// List returns all readable reports, newest first
func (r *ReportRepository) List(ctx context.Context) ([]*domain.Report, error) {
	entries, err := r.storage.List(ctx, "")
	if err != nil {
		return nil, err
	}

	reports := make([]*domain.Report, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry, "/") {
			continue
		}
		id := strings.TrimSuffix(entry, "/")

		var report domain.Report
		if err := storage.LoadJSON(ctx, r.storage, path.Join(id, reportFileName), &report); err != nil {
			r.logger.Warnw("Skipping unreadable report", "report_id", id, "error", err)
			continue
		}
		report.ID = id
		reports = append(reports, &report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reportOrder(reports[i]) > reportOrder(reports[j])
	})
	return reports, nil
}

func reportOrder(r *domain.Report) int64 {
	if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil {
		return n
	}
	return r.CreatedAt.UnixMilli()
}
