package entity

// Defect дефект, найденный детектором на обрезанном кадре
type Defect struct {
	Name       string
	X          int // координата X левого верхнего угла
	Y          int // координата Y левого верхнего угла
	Width      int
	Height     int
	Confidence float64
}

// Center возвращает координаты центра дефекта
func (d Defect) Center() (x, y int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}
