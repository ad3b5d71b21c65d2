package entity

// Product es una referencia de solo lectura al catálogo externo de productos.
type Product struct {
	ID   string
	Code string // código/SKU visible en reportes
	Name string
}
