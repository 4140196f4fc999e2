package models

import (
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// SettlementRun is the audit record of one confirmed settlement attempt.
type SettlementRun struct {
	ID                 string                  `gorm:"column:id;primaryKey"`
	WorkflowID         string                  `gorm:"column:workflow_id;not null"`
	ActorUserID        int                     `gorm:"column:actor_user_id;not null"`
	ActorUsername      string                  `gorm:"column:actor_username"`
	CourierID          int                     `gorm:"column:courier_id;not null"`
	CourierName        string                  `gorm:"column:courier_name"`
	Outcome            enums.SettlementOutcome `gorm:"column:outcome;not null"`
	ServicesCount      int                     `gorm:"column:services_count;not null"`
	UrbanCount         int                     `gorm:"column:urban_count;not null"`
	RuralCount         int                     `gorm:"column:rural_count;not null"`
	TotalValue         int64                   `gorm:"column:total_value;not null"`
	CourierShare       int64                   `gorm:"column:courier_share;not null"`
	PlatformShare      int64                   `gorm:"column:platform_share;not null"`
	DateFrom           *time.Time              `gorm:"column:date_from"`
	DateTo             *time.Time              `gorm:"column:date_to"`
	SucceededCount     int                     `gorm:"column:succeeded_count;not null"`
	FailedCount        int                     `gorm:"column:failed_count;not null"`
	FailedDocumentIDs  string                  `gorm:"column:failed_document_ids;not null"`
	NotificationSent   bool                    `gorm:"column:notification_sent;not null"`
	NotificationStatus int                     `gorm:"column:notification_status"`
	NotificationError  string                  `gorm:"column:notification_error"`
	CreatedAt          time.Time               `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table created by the migrations.
func (SettlementRun) TableName() string {
	return "settlement_runs"
}
