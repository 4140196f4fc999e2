package services

import (
	"strings"
	"time"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// Service is a delivery order as read from the data API. ID keys list/filter operations;
// DocumentID keys mutations. The two are never interchangeable.
type Service struct {
	ID          int                 `json:"id"`
	DocumentID  string              `json:"documentId"`
	RequestedAt time.Time           `json:"fechaSolicitud"`
	Status      enums.ServiceStatus `json:"estado"`
	Settled     bool                `json:"liquidado"`
	SettledAt   *time.Time          `json:"fechaLiquidacion"`
	Type        *ServiceType        `json:"tipo"`
	Merchant    Merchant            `json:"comercio"`
	Courier     Courier             `json:"colaborador"`
	Location    *Location           `json:"locacion"`
}

// TypeDescription returns tipo.descripcion, or "" when the service has no type.
func (s Service) TypeDescription() string {
	if s.Type == nil {
		return ""
	}
	return s.Type.Description
}

// LocationDescription returns locacion.descripcion, or "" when absent.
func (s Service) LocationDescription() string {
	if s.Location == nil {
		return ""
	}
	return s.Location.Description
}

// Selectable reports whether the service may join a settlement batch.
func (s Service) Selectable() bool {
	return !s.Settled
}

// Courier is the colaborador relation.
type Courier struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId,omitempty"`
	FirstName  string `json:"nombre"`
	LastName   string `json:"apellido"`
	Phone      string `json:"telefono"`
}

// FullName joins nombre and apellido.
func (c Courier) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Merchant is the comercio relation.
type Merchant struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId,omitempty"`
	Name       string `json:"nombre"`
}

// ServiceType is the tipo relation; its description drives valuation.
type ServiceType struct {
	ID          int    `json:"id"`
	Description string `json:"descripcion"`
}

// Location is the locacion relation.
type Location struct {
	ID          int    `json:"id"`
	Description string `json:"descripcion"`
}
