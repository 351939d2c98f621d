package entity

// OperationRecord запись об обработке одного рулона
type OperationRecord struct {
	CoilID            string
	GlobalOperationID string
	NumPictures       int
}

// PictureRecord запись о сохранённом кадре
type PictureRecord struct {
	OperationID          int64
	ProductPositionLeft  int
	ProductPositionRight int
	ProductPositionStart int
	ProductPositionEnd   int
	PictureScaleX        float64
	PictureScaleY        float64
	URI                  string
	Cutoff               float64
	Type                 int
	LabelURI             *string
	Saved                bool
	BrightnessMin        int
	BrightnessMax        int
	SystemID             int
	CompressionQuality   int
}
