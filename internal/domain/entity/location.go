package entity

import "time"

// Location representa un lugar físico o lógico donde se lleva stock (sucursal, "entregado al cliente", etc.).
// Code es la clave de negocio estable; nunca se elimina físicamente, solo se retira (Active=false).
type Location struct {
	ID          string
	Code        string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// LocationSpec describe una ubicación requerida por los flujos automáticos (aprovisionamiento idempotente).
type LocationSpec struct {
	Code        string
	Name        string
	Description string
}
