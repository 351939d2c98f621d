package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coil-vision/internal/domain/entity"
	"coil-vision/internal/domain/port"
)

// LineService управляет состоянием линий: загрузка, сохранение, смена рулона.
type LineService struct {
	repo    port.LineStateRepository
	records port.RecordRepository // nil — записи операций не ведутся
	log     *zap.Logger
	now     func() time.Time
}

// NewLineService создаёт сервис линий. records может быть nil.
func NewLineService(repo port.LineStateRepository, records port.RecordRepository, log *zap.Logger) *LineService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LineService{repo: repo, records: records, log: log, now: time.Now}
}

func (s *LineService) Get(ctx context.Context, lineID string) (*entity.LineState, error) {
	return s.repo.Get(ctx, lineID)
}

func (s *LineService) List(ctx context.Context) ([]entity.LineState, error) {
	return s.repo.List(ctx)
}

// Commit сохраняет результат обработки кадра. Если пока кадр обрабатывался рулон
// сменили или линию сбросили (Generation изменился), результат кадра отбрасывается,
// учитываются только счётчики кадров. Возвращает false для отброшенного результата.
func (s *LineService) Commit(ctx context.Context, state *entity.LineState) (bool, error) {
	applied := true
	_, err := s.repo.Update(ctx, state.LineID, func(cur *entity.LineState) error {
		if cur.Generation != state.Generation {
			applied = false
			cur.LastFrameID = max(cur.LastFrameID, state.LastFrameID)
			cur.Frames++
			return nil
		}
		*cur = *state
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "save line %s", state.LineID)
	}
	return applied, nil
}

// Reset забывает всё состояние линии, как при перезапуске.
func (s *LineService) Reset(ctx context.Context, lineID string) error {
	_, err := s.repo.Update(ctx, lineID, func(cur *entity.LineState) error {
		generation := cur.Generation
		*cur = *entity.NewLineState(lineID)
		cur.Generation = generation + 1
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "reset line %s", lineID)
	}
	s.log.Info("line state reset", zap.String("line", lineID))
	return nil
}

// ChangeCoil сбрасывает опорную ширину рулона, чтобы новый рулон другой ширины
// не подменялся старым измерением, и заводит запись операции.
func (s *LineService) ChangeCoil(ctx context.Context, lineID, coilID string) (*entity.LineState, error) {
	var operationID int64
	if s.records != nil {
		op := entity.OperationRecord{
			CoilID:            coilID,
			GlobalOperationID: fmt.Sprintf("%s-%s-%d", lineID, coilID, s.now().Unix()),
		}
		id, err := s.records.InsertOperation(ctx, op)
		if err != nil {
			return nil, errors.Wrapf(err, "operation for coil %s", coilID)
		}
		operationID = id
	}

	state, err := s.repo.Update(ctx, lineID, func(cur *entity.LineState) error {
		cur.Stabilizer.ForgetCoil()
		cur.LastMeasurement = entity.CoilMeasurement{}
		cur.OperationID = operationID
		cur.Generation++
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "save line %s", lineID)
	}

	s.log.Info("coil changed",
		zap.String("line", lineID),
		zap.String("coil", coilID),
		zap.Int64("operation_id", state.OperationID),
	)
	return state, nil
}
