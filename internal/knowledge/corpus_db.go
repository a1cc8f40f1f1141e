package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

// ChunkRecord 语料表行，Position即索引行号
type ChunkRecord struct {
	Position      int    `gorm:"primaryKey;autoIncrement:false"`
	SequenceIndex int    `gorm:"not null"`
	SourceURL     string `gorm:"size:1024;not null"`
	Text          string `gorm:"type:text;not null"`
	TextHash      string `gorm:"size:64"`
	ModelID       string `gorm:"size:128"`
	Embedding     string `gorm:"type:text;not null"`
}

// TableName 表名
func (ChunkRecord) TableName() string {
	return "corpus_chunks"
}

// OpenPostgres 打开PostgreSQL连接
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// DBCorpusSource 从PostgreSQL加载语料
type DBCorpusSource struct {
	db *gorm.DB
}

// NewDBCorpusSource 创建数据库语料源
func NewDBCorpusSource(db *gorm.DB) *DBCorpusSource {
	return &DBCorpusSource{db: db}
}

// Close 关闭底层连接池
func (s *DBCorpusSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 创建语料表
func (s *DBCorpusSource) AutoMigrate() error {
	return s.db.AutoMigrate(&ChunkRecord{})
}

// Load 按Position顺序读取全部行，行号不连续视为部分重建
func (s *DBCorpusSource) Load(ctx context.Context) (*Corpus, error) {
	var records []ChunkRecord
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load corpus rows: %w", err)
	}

	chunks := make([]Chunk, len(records))
	rows := make([][]float32, len(records))
	modelID := ""
	for i, r := range records {
		if r.Position != i {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf(
				"corpus rows are not contiguous: row %d has position %d", i, r.Position))
		}
		if modelID == "" {
			modelID = r.ModelID
		} else if r.ModelID != "" && r.ModelID != modelID {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf(
				"corpus mixes embedding models %q and %q", modelID, r.ModelID))
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(r.Embedding), &embedding); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid embedding at position %d", r.Position)).WithCause(err)
		}
		chunks[i] = Chunk{
			Text:          r.Text,
			SourceURL:     r.SourceURL,
			SequenceIndex: r.SequenceIndex,
			TextHash:      r.TextHash,
		}
		rows[i] = embedding
	}
	return NewCorpusFromRows(modelID, chunks, rows)
}

// Publish 整体替换表中语料
func (s *DBCorpusSource) Publish(ctx context.Context, corpus *Corpus) error {
	records := make([]ChunkRecord, corpus.Len())
	for i := range records {
		c := corpus.Chunk(i)
		embedding, err := json.Marshal(corpus.Vector(i))
		if err != nil {
			return err
		}
		records[i] = ChunkRecord{
			Position:      i,
			SequenceIndex: c.SequenceIndex,
			SourceURL:     c.SourceURL,
			Text:          c.Text,
			TextHash:      c.TextHash,
			ModelID:       corpus.ModelID(),
			Embedding:     string(embedding),
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ChunkRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear corpus: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("failed to insert corpus: %w", err)
		}
		return nil
	})
}
