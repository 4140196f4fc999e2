package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/domiciliarios-backend/pkg/db/models"
	"github.com/angelmondragon/domiciliarios-backend/pkg/pagination"
)

// Repository manages persistence for settlement runs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, run *models.SettlementRun) error
	List(ctx context.Context, courierID int, params pagination.Params) ([]models.SettlementRun, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, run *models.SettlementRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// List returns newest runs first; courierID 0 lists every courier.
func (r *repository) List(ctx context.Context, courierID int, params pagination.Params) ([]models.SettlementRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SettlementRun{})
	if courierID > 0 {
		query = query.Where("courier_id = ?", courierID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.SettlementRun
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Normalize(pagination.DefaultPageSize).PageSize).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
