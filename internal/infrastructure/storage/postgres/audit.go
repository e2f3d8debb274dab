package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/audit"
)

const auditTable = "sys_audit"

// CompressionAlgo specifies the compression applied to stored changes.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is the stored form of an audit entry.
type AuditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

var _ audit.Recorder = (*AuditService)(nil)

// AuditService writes audit entries to sys_audit inside the caller's
// transaction. Change sets above the threshold are zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) error {
	row, err := s.toRow(ctx, entry)
	if err != nil {
		return err
	}

	sql, args, err := s.insertQuery(row).ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditService) toRow(ctx context.Context, entry audit.Entry) (AuditRow, error) {
	if entry.UserID == "" {
		entry.UserID = appctx.GetUserID(ctx)
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return AuditRow{}, fmt.Errorf("marshal audit changes: %w", err)
	}

	row := AuditRow{
		ID:              entry.ID,
		EntityType:      entry.EntityType,
		EntityID:        entry.EntityID,
		Action:          string(entry.Action),
		UserID:          entry.UserID,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       entry.CreatedAt,
	}
	if len(changes) > s.compressThreshold {
		row.ChangesCompressed = s.encoder.EncodeAll(changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row, nil
}

func (s *AuditService) insertQuery(row AuditRow) squirrel.InsertBuilder {
	return s.builder.Insert(auditTable).SetMap(StructToMap(row))
}
