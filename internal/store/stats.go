package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Fouad1806/self-driving-car/sim"
)

// GenerationRecord is one generation of one training run.
type GenerationRecord struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	Run          string         `gorm:"size:64;index:idx_run_generation" json:"run"`
	Generation   int            `gorm:"index:idx_run_generation" json:"generation"`
	Best         float64        `json:"best"`
	Mean         float64        `json:"mean"`
	Worst        float64        `json:"worst"`
	MaxDistance  float64        `json:"maxDistance"`
	Vehicles     int            `json:"vehicles"`
	Deaths       datatypes.JSON `json:"deaths"`
	SpeciesSizes datatypes.JSON `json:"speciesSizes"`
}

// StatsStore keeps generation statistics in SQLite or Postgres.
type StatsStore struct {
	db *gorm.DB
}

// Open connects to driver ("sqlite" or "postgres") at dsn and migrates the
// schema. An empty SQLite dsn opens a private in-memory database.
func Open(driver, dsn string) (*StatsStore, error) {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps in-memory databases shared and avoids
		// SQLITE_BUSY on files
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&GenerationRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &StatsStore{db: db}, nil
}

// SaveGeneration stores stats for run together with the species sizes.
func (s *StatsStore) SaveGeneration(ctx context.Context, run string, stats sim.GenerationStats, speciesSizes map[int]int) error {
	deaths, err := json.Marshal(stats.Deaths)
	if err != nil {
		return fmt.Errorf("encoding deaths: %w", err)
	}
	sizes, err := json.Marshal(speciesSizes)
	if err != nil {
		return fmt.Errorf("encoding species sizes: %w", err)
	}

	rec := GenerationRecord{
		Run:          run,
		Generation:   stats.Generation,
		Best:         stats.Best,
		Mean:         stats.Mean,
		Worst:        stats.Worst,
		MaxDistance:  stats.MaxDistance,
		Vehicles:     stats.Vehicles,
		Deaths:       datatypes.JSON(deaths),
		SpeciesSizes: datatypes.JSON(sizes),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("saving generation %d: %w", stats.Generation, err)
	}
	return nil
}

// History returns every stored generation of run, oldest first.
func (s *StatsStore) History(ctx context.Context, run string) ([]GenerationRecord, error) {
	var recs []GenerationRecord
	err := s.db.WithContext(ctx).
		Where("run = ?", run).
		Order("generation ASC").
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("loading history of %s: %w", run, err)
	}
	return recs, nil
}

// Close releases the database connection.
func (s *StatsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
