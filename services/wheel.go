package services

import (
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"early-badge-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WheelOutcome is one segment of the reward wheel. Segment order here
// is the contract with the client animation: the index of the returned
// outcome in the table is the segment the wheel must land on.
type WheelOutcome struct {
	Rep    int64 `json:"rep"`
	Weight int   `json:"weight"`
}

// DefaultWheelTable: 9 tiers, weights sum to 100, so a weight reads
// directly as a percentage.
var DefaultWheelTable = []WheelOutcome{
	{Rep: 0, Weight: 25},
	{Rep: 50, Weight: 20},
	{Rep: 100, Weight: 18},
	{Rep: 150, Weight: 12},
	{Rep: 200, Weight: 10},
	{Rep: 300, Weight: 7},
	{Rep: 500, Weight: 5},
	{Rep: 750, Weight: 2},
	{Rep: 1000, Weight: 1},
}

// WheelService is the one-shot weighted prize engine.
type WheelService struct {
	DB    *gorm.DB
	Table []WheelOutcome
	Cache *Cache

	totalWeight int
}

func NewWheelService(db *gorm.DB, table []WheelOutcome, cache *Cache) *WheelService {
	if len(table) == 0 {
		table = DefaultWheelTable
	}
	total := 0
	for _, o := range table {
		total += o.Weight
	}
	return &WheelService{DB: db, Table: table, Cache: cache, totalWeight: total}
}

func (s *WheelService) draw() WheelOutcome {
	n := rand.Intn(s.totalWeight)
	for _, o := range s.Table {
		if n < o.Weight {
			return o
		}
		n -= o.Weight
	}
	return s.Table[len(s.Table)-1]
}

// SegmentIndex maps a stored REP value back to its wheel segment so
// the client can land the animation on the right slice.
func (s *WheelService) SegmentIndex(rep int64) int {
	for i, o := range s.Table {
		if o.Rep == rep {
			return i
		}
	}
	return 0
}

// Spin draws the user's single outcome. The second and every later
// attempt fails with AlreadySpun — it never re-rolls. The unique email
// index on spin_results turns a concurrent double spin into a unique
// violation, which is reported as AlreadySpun as well.
func (s *WheelService) Spin(email string) (*models.SpinResult, error) {
	var result models.SpinResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.SpinResult
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			return ErrAlreadySpun
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		outcome := s.draw()
		result = models.SpinResult{
			ID:        uuid.NewString(),
			Email:     email,
			RepEarned: outcome.Rep,
			SpunAt:    time.Now(),
		}
		return tx.Create(&result).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySpun
		}
		return nil, err
	}

	s.Cache.InvalidateDashboard(email)
	log.Printf("🎡 Wheel spun by %s → %d REP", email, result.RepEarned)
	return &result, nil
}

// WheelStatus is the idempotent read: the stored result if any.
type WheelStatus struct {
	HasSpun  bool               `json:"has_spun"`
	SpinData *models.SpinResult `json:"spin_data,omitempty"`
	Segment  *int               `json:"segment,omitempty"`
}

func (s *WheelService) Status(email string) (*WheelStatus, error) {
	var result models.SpinResult
	err := s.DB.Where("email = ?", email).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &WheelStatus{HasSpun: false}, nil
	}
	if err != nil {
		return nil, err
	}
	seg := s.SegmentIndex(result.RepEarned)
	return &WheelStatus{HasSpun: true, SpinData: &result, Segment: &seg}, nil
}

// isUniqueViolation covers the drivers in play: gorm's translated
// error where supported, plus the raw postgres/sqlite message texts.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
