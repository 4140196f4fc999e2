package enums

import "fmt"

// ServiceStatus is the lifecycle status of a delivery service as stored by the CMS.
type ServiceStatus string

const (
	ServiceStatusPending         ServiceStatus = "pendiente"
	ServiceStatusAssigned        ServiceStatus = "asignado"
	ServiceStatusAtMerchant      ServiceStatus = "en_comercio"
	ServiceStatusPackageReceived ServiceStatus = "paquete_recibido"
	ServiceStatusDelivered       ServiceStatus = "entregado"
	ServiceStatusCancelled       ServiceStatus = "cancelado"
	ServiceStatusDeleted         ServiceStatus = "eliminado"
)

var validServiceStatuses = []ServiceStatus{
	ServiceStatusPending,
	ServiceStatusAssigned,
	ServiceStatusAtMerchant,
	ServiceStatusPackageReceived,
	ServiceStatusDelivered,
	ServiceStatusCancelled,
	ServiceStatusDeleted,
}

// String implements fmt.Stringer.
func (s ServiceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceStatus.
func (s ServiceStatus) IsValid() bool {
	for _, candidate := range validServiceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceStatus converts raw input into a ServiceStatus.
func ParseServiceStatus(value string) (ServiceStatus, error) {
	for _, candidate := range validServiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service status %q", value)
}
