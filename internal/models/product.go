package models

// Product representa una fila del maestro de productos
type Product struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ExternalCode  string `json:"external_code,omitempty"`
	ShelfLifeDays int    `json:"shelf_life_days"`
	StandardStock int    `json:"standard_stock"`
	AlertDays     int    `json:"alert_days"`
	IsManaged     bool   `json:"is_managed"`
}

// ProductSet productos gestionados indexados por código
type ProductSet map[string]Product

// Has indica si el código pertenece a un producto gestionado
func (s ProductSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}
