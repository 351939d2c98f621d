package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

const (
	insertOperationSQL = `INSERT INTO operation (genkCoilId, globalOperationId, numPictures) VALUES (?, ?, ?)`

	insertPictureSQL = `INSERT INTO picture (operationId, productPositionLeft, productPositionRight, ` +
		`productPositionStart, productPositionEnd, pictureScaleX, pictureScaleY, ` +
		`type, uri, labelUri, saved, originalBrightnessMin, originalBrightnessMax, ` +
		`systemId, compressionQuality, cutoff) ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// OpenMySQL открывает пул соединений с MariaDB/MySQL и проверяет доступность базы.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping mysql %s", cfg.Addr)
	}
	return db, nil
}

// MySQLRecordRepository пишет записи об операциях и снимках в таблицы operation и picture
type MySQLRecordRepository struct {
	db *sql.DB
}

// NewMySQLRecordRepository создаёт хранилище поверх открытого пула
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

// InsertOperation добавляет запись операции и возвращает её ID
func (r *MySQLRecordRepository) InsertOperation(ctx context.Context, op entity.OperationRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertOperationSQL, op.CoilID, op.GlobalOperationID, op.NumPictures)
	if err != nil {
		return 0, errors.Wrap(err, "insert operation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "operation id")
	}
	return id, nil
}

// InsertPicture добавляет запись снимка и возвращает её ID
func (r *MySQLRecordRepository) InsertPicture(ctx context.Context, pic entity.PictureRecord) (int64, error) {
	var labelURI sql.NullString
	if pic.LabelURI != nil {
		labelURI = sql.NullString{String: *pic.LabelURI, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, insertPictureSQL,
		pic.OperationID,
		pic.ProductPositionLeft, pic.ProductPositionRight,
		pic.ProductPositionStart, pic.ProductPositionEnd,
		pic.PictureScaleX, pic.PictureScaleY,
		pic.Type, pic.URI, labelURI, pic.Saved,
		pic.BrightnessMin, pic.BrightnessMax,
		pic.SystemID, pic.CompressionQuality, pic.Cutoff,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert picture")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "picture id")
	}
	return id, nil
}

// Close закрывает пул соединений
func (r *MySQLRecordRepository) Close() error {
	return r.db.Close()
}

var _ port.RecordRepository = (*MySQLRecordRepository)(nil)
