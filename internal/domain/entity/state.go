package entity

// StabilizerState состояние стабилизатора обрезки для одной линии.
// Меняется ровно один раз на кадр и живёт до перезапуска линии.
type StabilizerState struct {
	ReferenceCenter int     // сглаженный центр рулона
	LargestWidth    int     // принятая ширина окна обрезки
	LastCoilCenter  int     // центр из последнего доверенного измерения
	LastCoilWidthMM float64 // ширина из последнего доверенного измерения, 0 — нет опоры
}

// Prior возвращает предыдущее измерение для временной проверки или nil.
func (s StabilizerState) Prior() *CoilMeasurement {
	if s.LastCoilWidthMM <= 0 {
		return nil
	}
	return &CoilMeasurement{WidthMM: s.LastCoilWidthMM, CenterPx: s.LastCoilCenter}
}

// Remember запоминает доверенное измерение; отброшенные игнорируются.
func (s *StabilizerState) Remember(m CoilMeasurement) {
	if m.Rejected() {
		return
	}
	s.LastCoilWidthMM = m.WidthMM
	s.LastCoilCenter = m.CenterPx
}

// ForgetCoil сбрасывает опору при смене рулона.
func (s *StabilizerState) ForgetCoil() {
	s.LastCoilWidthMM = 0
	s.LastCoilCenter = 0
}

// LineState всё, что линия помнит между кадрами
type LineState struct {
	LineID          string
	Stabilizer      StabilizerState
	LastFrameID     int64 // 0 — кадров ещё не было
	OperationID     int64 // запись операции текущего рулона, 0 — не создана
	LastMeasurement CoilMeasurement
	Frames          int64
	Generation      int64 // растёт при смене рулона и сбросе линии
}

// NewLineState создаёт состояние для только что запущенной линии.
func NewLineState(lineID string) *LineState {
	return &LineState{LineID: lineID}
}

// FramesLost считает пропущенные кадры и запоминает текущий идентификатор.
func (s *LineState) FramesLost(frameID int64) int64 {
	var lost int64
	if s.LastFrameID > 0 && frameID > s.LastFrameID+1 {
		lost = frameID - s.LastFrameID - 1
	}
	s.LastFrameID = frameID
	return lost
}
