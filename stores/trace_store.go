// Package stores persists generation traces — one row per pipeline run —
// behind an interface with sqlite and postgres backends.
package stores

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Generation_Trace records one run of the generation pipeline.
type Generation_Trace struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Provider     string `json:"provider"`
	Model        string `json:"model"`
	EnableSearch bool   `json:"enable_search"`

	ResultType     string `json:"result_type"`
	ToolIterations int    `json:"tool_iterations"`
	RepairAttempts int    `json:"repair_attempts"`
	SourceCount    int    `json:"source_count"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Trace_Store is the persistence contract the generator writes through.
type Trace_Store interface {
	Save_Trace(trace *Generation_Trace) error
	Recent_Traces(limit int) ([]Generation_Trace, error)
	Close() error
}

// GormTraceStore implements Trace_Store over any gorm dialect.
type GormTraceStore struct {
	db *gorm.DB
}

// NewSQLiteTraceStore opens (or creates) a sqlite trace database at path.
func NewSQLiteTraceStore(path string) (*GormTraceStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite trace db: %w", err)
	}
	return newGormTraceStore(db)
}

// NewPostgresTraceStore connects to a postgres trace database by DSN.
func NewPostgresTraceStore(dsn string) (*GormTraceStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres trace db: %w", err)
	}
	return newGormTraceStore(db)
}

func newGormTraceStore(db *gorm.DB) (*GormTraceStore, error) {
	if err := db.AutoMigrate(&Generation_Trace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate trace schema: %w", err)
	}
	return &GormTraceStore{db: db}, nil
}

func (s *GormTraceStore) Save_Trace(trace *Generation_Trace) error {
	if err := s.db.Create(trace).Error; err != nil {
		return fmt.Errorf("failed to save trace: %w", err)
	}
	return nil
}

func (s *GormTraceStore) Recent_Traces(limit int) ([]Generation_Trace, error) {
	if limit <= 0 {
		limit = 50
	}
	var traces []Generation_Trace
	if err := s.db.Order("created_at desc").Limit(limit).Find(&traces).Error; err != nil {
		return nil, fmt.Errorf("failed to load traces: %w", err)
	}
	return traces, nil
}

func (s *GormTraceStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
