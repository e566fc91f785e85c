package history

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// Estimator derives cutting throughput from recorded history
type Estimator struct {
	repo repositories.CutHistoryRepository
}

func NewEstimator(repo repositories.CutHistoryRepository) *Estimator {
	return &Estimator{repo: repo}
}

// TimePerUnit is the total minutes over the total quantity cut for a part on
// one cutter, rounded to four places
func (e *Estimator) TimePerUnit(ctx context.Context, part entities.PartNumber, wireCutterID uint) (decimal.Decimal, error) {
	rows, err := e.repo.ListFor(ctx, part, wireCutterID)
	if err != nil {
		return decimal.Zero, err
	}

	minutes := decimal.Zero
	quantity := decimal.Zero
	for _, row := range rows {
		minutes = minutes.Add(row.TotalTimeMinutes)
		quantity = quantity.Add(row.QuantityCut)
	}
	if !quantity.IsPositive() {
		return decimal.Zero, entities.NewNotFoundError("cut history", fmt.Sprintf("%s/%d", part, wireCutterID))
	}
	return minutes.Div(quantity).Round(4), nil
}

// Estimate predicts the minutes needed to cut quantity
func (e *Estimator) Estimate(
	ctx context.Context,
	part entities.PartNumber,
	wireCutterID uint,
	quantity decimal.Decimal,
) (decimal.Decimal, error) {
	perUnit, err := e.TimePerUnit(ctx, part, wireCutterID)
	if err != nil {
		return decimal.Zero, err
	}
	return perUnit.Mul(quantity).Round(2), nil
}
