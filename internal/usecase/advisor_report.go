package usecase

import (
	"context"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	domsvc "GridPulse/internal/domain/service"
)

// AdvisorUseCase pulls a recent window of records and runs the advisor.
type AdvisorUseCase struct {
	store   domrepo.ReadingStore
	advisor domsvc.Advisor
	now     func() time.Time
}

func NewAdvisorUseCase(store domrepo.ReadingStore, advisor domsvc.Advisor) *AdvisorUseCase {
	return &AdvisorUseCase{store: store, advisor: advisor, now: time.Now}
}

func (uc *AdvisorUseCase) Report(ctx context.Context, customerID int64, days int) (models.AdvisorReport, error) {
	if days <= 0 {
		days = 30
	}
	now := uc.now().UTC()
	from := now.AddDate(0, 0, -days)

	it, err := uc.store.Scan(ctx, customerID, from, now)
	if err != nil {
		return models.AdvisorReport{}, err
	}
	defer it.Close()

	var records []*models.MeterRecord
	for it.Next() {
		records = append(records, it.Record())
	}
	if err := it.Err(); err != nil {
		return models.AdvisorReport{}, err
	}
	return uc.advisor.Advise(customerID, records), nil
}
