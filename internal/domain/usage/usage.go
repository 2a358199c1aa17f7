package usage

import (
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// UsageType names a metered resource.
type UsageType string

const (
	UsageTypeImageGeneration UsageType = "image_generation"
	UsageTypeUpscale         UsageType = "upscale"
)

func (t UsageType) String() string {
	return string(t)
}

func (t UsageType) IsValid() bool {
	return t == UsageTypeImageGeneration || t == UsageTypeUpscale
}

func ParseUsageType(value string) (UsageType, error) {
	t := UsageType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid usage type: %q", value)
	}
	return t, nil
}

// Record is one user's consumption counter for one business day and one
// usage type. The (userID, usageDate, usageType) triple is the natural key;
// concurrent increments land on the same row via an atomic upsert, so the
// count only ever moves up.
type Record struct {
	id        uint
	userID    uint
	usageDate time.Time
	usageType UsageType
	count     int64
	createdAt time.Time
	updatedAt time.Time
}

// NewRecord creates a counter row for a user's business day.
func NewRecord(userID uint, day time.Time, usageType UsageType, count int64) (*Record, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !usageType.IsValid() {
		return nil, fmt.Errorf("invalid usage type: %s", usageType)
	}
	if count < 0 {
		return nil, fmt.Errorf("count cannot be negative")
	}

	now := biztime.NowUTC()
	return &Record{
		userID:    userID,
		usageDate: biztime.DayKey(day),
		usageType: usageType,
		count:     count,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (r *Record) ID() uint             { return r.id }
func (r *Record) UserID() uint         { return r.userID }
func (r *Record) UsageDate() time.Time { return r.usageDate }
func (r *Record) UsageType() UsageType { return r.usageType }
func (r *Record) Count() int64         { return r.count }
func (r *Record) CreatedAt() time.Time { return r.createdAt }
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// RecordReconstructParams carries persisted state back into the domain.
type RecordReconstructParams struct {
	ID        uint
	UserID    uint
	UsageDate time.Time
	UsageType UsageType
	Count     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconstructRecord rebuilds a usage record from persistence.
func ReconstructRecord(p RecordReconstructParams) (*Record, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("record ID cannot be zero")
	}
	if !p.UsageType.IsValid() {
		return nil, fmt.Errorf("invalid usage type: %s", p.UsageType)
	}

	return &Record{
		id:        p.ID,
		userID:    p.UserID,
		usageDate: p.UsageDate,
		usageType: p.UsageType,
		count:     p.Count,
		createdAt: p.CreatedAt,
		updatedAt: p.UpdatedAt,
	}, nil
}
