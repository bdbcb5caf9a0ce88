package sink

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/invoice-entities/internal/repository"
)

// SQL appends rows to a table through the record repository.
type SQL struct {
	db     *repository.DB
	repo   repository.RecordRepository
	logger *slog.Logger
}

func NewSQL(ctx context.Context, driver, dsn, table string, logger *slog.Logger) (*SQL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := repository.Open(ctx, repository.Config{Driver: driver, DSN: dsn}, logger)
	if err != nil {
		return nil, err
	}
	return &SQL{db: db, repo: repository.NewRecordRepository(db, table, logger), logger: logger}, nil
}

func (s *SQL) EnsureSchema(ctx context.Context) error { return s.repo.EnsureTable(ctx) }

func (s *SQL) AppendRow(ctx context.Context, row []string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	id, err := s.repo.Insert(ctx, row)
	if err != nil {
		return err
	}
	s.logger.Debug("sink.sql.inserted", "id", id, "filename", row[0])
	return nil
}

// Repository exposes the underlying table for readers such as sinkcheck.
func (s *SQL) Repository() repository.RecordRepository { return s.repo }

func (s *SQL) Close() error {
	s.db.Close(s.logger)
	return nil
}
