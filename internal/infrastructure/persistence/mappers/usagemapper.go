package mappers

import (
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
)

func UsageRecordToDomain(model *models.UsageTrackingModel) (*usage.Record, error) {
	usageType, err := usage.ParseUsageType(model.UsageType)
	if err != nil {
		return nil, fmt.Errorf("invalid usage type: %w", err)
	}

	return usage.ReconstructRecord(usage.RecordReconstructParams{
		ID:        model.ID,
		UserID:    model.UserID,
		UsageDate: model.UsageDate,
		UsageType: usageType,
		Count:     model.Count,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	})
}
