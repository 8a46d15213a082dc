package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a picking request.
type RequestStatus string

const (
	RequestDraft        RequestStatus = "DRAFT"
	RequestSubmitted    RequestStatus = "SUBMITTED"
	RequestInSeparation RequestStatus = "IN_SEPARATION"
	RequestPartial      RequestStatus = "PARTIAL"
	RequestCompleted    RequestStatus = "COMPLETED"
	RequestCancelled    RequestStatus = "CANCELLED"
)

// LineStatus is the lifecycle state of a single request line.
type LineStatus string

const (
	LinePending          LineStatus = "PENDING"
	LineAwaitingPriority LineStatus = "AWAITING_PRIORITY"
	LineReserving        LineStatus = "RESERVING"
	LinePartial          LineStatus = "PARTIAL"
	LineSeparated        LineStatus = "SEPARATED"
	LinePurchaseRequired LineStatus = "PURCHASE_REQUIRED"
	LineCancelled        LineStatus = "CANCELLED"
)

// Terminal reports whether no further allocation may touch the line.
func (s LineStatus) Terminal() bool {
	return s == LineSeparated || s == LineCancelled || s == LinePurchaseRequired
}

// Request is a picking order raised by the commercial side against
// warehouse stock. Terminal once COMPLETED or CANCELLED.
type Request struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	RequestNumber       string         `json:"request_number" db:"request_number"`
	Status              RequestStatus  `json:"status" db:"status"`
	CreatedBy           uuid.UUID      `json:"created_by" db:"created_by"`
	CommercialNotes     string         `json:"commercial_notes,omitempty" db:"commercial_notes"`
	WarehouseNotes      string         `json:"warehouse_notes,omitempty" db:"warehouse_notes"`
	OpenedAt            time.Time      `json:"opened_at" db:"opened_at"`
	SeparationStartedAt *time.Time     `json:"separation_started_at,omitempty" db:"separation_started_at"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
	Lines               []*RequestLine `json:"lines,omitempty"`
}

// RequestLine is one product-code demand within a request.
// Invariant after every operation: 0 <= separated <= reserved <= requested.
type RequestLine struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	RequestID         uuid.UUID  `json:"request_id" db:"request_id"`
	Code              string     `json:"code" db:"code"`
	SupplierTag       string     `json:"supplier_tag,omitempty" db:"supplier_tag"`
	Requested         int        `json:"requested" db:"requested"`
	Priority          *int       `json:"priority,omitempty" db:"priority"`
	AvailableSnapshot int        `json:"available_snapshot" db:"available_snapshot"`
	Reserved          int        `json:"reserved" db:"reserved"`
	Separated         int        `json:"separated" db:"separated"`
	Status            LineStatus `json:"status" db:"status"`
	LockedBy          *uuid.UUID `json:"locked_by,omitempty" db:"locked_by"`
	LockedAt          *time.Time `json:"locked_at,omitempty" db:"locked_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewRequestNumber creates a human request code: SOL-YYYYMMDD-XXXX.
func NewRequestNumber() string {
	date := time.Now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("SOL-%s-%s", date, suffix)
}
