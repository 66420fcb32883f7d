// Package searchindex stores harvested asset metadata in a relational
// database through gorm.
package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/c360studio/semharvest/asset"
)

// ErrNotFound is returned when no asset has the requested IRI.
var ErrNotFound = errors.New("asset not found")

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the database.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// SlowThreshold is the duration above which queries are logged.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// assetRecord is the row of one asset. The full metadata is kept as JSON;
// the filtered columns are duplicated.
type assetRecord struct {
	IRI            string         `gorm:"column:iri;primaryKey"`
	Type           string         `gorm:"column:type;index:idx_semantic_assets_repo_type,priority:2"`
	RepoURL        string         `gorm:"column:repo_url;index:idx_semantic_assets_repo_type,priority:1"`
	Title          string         `gorm:"column:title"`
	RightsHolderID string         `gorm:"column:rights_holder_id;index"`
	Modified       time.Time      `gorm:"column:modified"`
	Metadata       datatypes.JSON `gorm:"column:metadata"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (assetRecord) TableName() string { return "semantic_assets" }

// Index is a gorm-backed search index.
type Index struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported search index driver %q", cfg.Driver)
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(slogWriter{logger}, gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return New(db, logger)
}

// New wraps an open database and migrates the schema.
func New(db *gorm.DB, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&assetRecord{}); err != nil {
		return nil, fmt.Errorf("migrate search index: %w", err)
	}
	return &Index{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts m by IRI.
func (i *Index) Save(ctx context.Context, m asset.Metadata) error {
	if m.IRI == "" {
		return errors.New("asset IRI is required")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	now := time.Now().UTC()
	rec := assetRecord{
		IRI:            m.IRI,
		Type:           string(m.Type),
		RepoURL:        m.RepoURL,
		Title:          m.Title,
		RightsHolderID: m.RightsHolderID,
		Modified:       m.Modified,
		Metadata:       datatypes.JSON(data),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "iri"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type",
			"repo_url",
			"title",
			"rights_holder_id",
			"modified",
			"metadata",
			"updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", m.IRI, err)
	}
	return nil
}

// Get returns the metadata stored for iri.
func (i *Index) Get(ctx context.Context, iri string) (asset.Metadata, error) {
	var rec assetRecord
	err := i.db.WithContext(ctx).Where("iri = ?", iri).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return asset.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, iri)
	}
	if err != nil {
		return asset.Metadata{}, fmt.Errorf("get %s: %w", iri, err)
	}
	return decode(rec)
}

// FindByRepoAndType returns the assets of one type harvested from repoURL,
// ordered by IRI.
func (i *Index) FindByRepoAndType(ctx context.Context, repoURL string, t asset.Type) ([]asset.Metadata, error) {
	var recs []assetRecord
	err := i.db.WithContext(ctx).
		Where("repo_url = ? AND type = ?", repoURL, string(t)).
		Order("iri").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find %s assets of %s: %w", t, repoURL, err)
	}
	out := make([]asset.Metadata, 0, len(recs))
	for _, rec := range recs {
		m, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteByRepoURL removes every asset harvested from repoURL.
func (i *Index) DeleteByRepoURL(ctx context.Context, repoURL string) error {
	res := i.db.WithContext(ctx).Where("repo_url = ?", repoURL).Delete(&assetRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete assets of %s: %w", repoURL, res.Error)
	}
	i.logger.Debug("Deleted indexed assets", "repo", repoURL, "count", res.RowsAffected)
	return nil
}

// Count returns the number of indexed assets of repoURL.
func (i *Index) Count(ctx context.Context, repoURL string) (int64, error) {
	var n int64
	err := i.db.WithContext(ctx).Model(&assetRecord{}).Where("repo_url = ?", repoURL).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count assets of %s: %w", repoURL, err)
	}
	return n, nil
}

func decode(rec assetRecord) (asset.Metadata, error) {
	var m asset.Metadata
	if err := json.Unmarshal(rec.Metadata, &m); err != nil {
		return asset.Metadata{}, fmt.Errorf("decode metadata of %s: %w", rec.IRI, err)
	}
	return m, nil
}

// slogWriter adapts slog to the gorm logger.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Warn(fmt.Sprintf(format, args...), "component", "searchindex")
}
