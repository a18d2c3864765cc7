//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"time"
)

const (
	defaultShipmentLimit = 50
	maxShipmentLimit     = 500
)

// ShipmentStatus is the lifecycle state of a bill of lading.
type ShipmentStatus string

const (
	ShipmentStatusDraft     ShipmentStatus = "draft"
	ShipmentStatusReleased  ShipmentStatus = "released"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
)

// Shipment is a summary row of the shipment history (one bill of lading).
type Shipment struct {
	ID           string         `db:"id"           json:"id"`
	BOLNumber    string         `db:"bol_number"   json:"bol_number"`
	Organization string         `db:"organization" json:"organization"`
	Carrier      string         `db:"carrier"      json:"carrier"`
	Status       ShipmentStatus `db:"status"       json:"status"`
	ShippedAt    *time.Time     `db:"shipped_at"   json:"shipped_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at"   json:"created_at"`
}

// ShipmentFilter controls listing of shipment history.
// An empty Organization means all organizations.
type ShipmentFilter struct {
	Organization string
	Status       ShipmentStatus
	Limit        int
	Offset       int
}

// Normalize trims fields and clamps paging.
func (f ShipmentFilter) Normalize() ShipmentFilter {
	f.Organization = strings.TrimSpace(f.Organization)
	f.Status = ShipmentStatus(strings.ToLower(strings.TrimSpace(string(f.Status))))
	if f.Limit <= 0 {
		f.Limit = defaultShipmentLimit
	}
	if f.Limit > maxShipmentLimit {
		f.Limit = maxShipmentLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
