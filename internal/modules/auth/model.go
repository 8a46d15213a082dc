package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role is a coarse capability grouping resolved at login.
type Role string

const (
	RoleWarehouse  Role = "WAREHOUSE"
	RoleCommercial Role = "COMMERCIAL"
	RoleAdmin      Role = "ADMIN"
)

// Permission strings checked per RPC action.
const (
	PermSeparationQueue   = "separacao.fila"
	PermSeparationExecute = "separacao.executar"
	PermRequestCreate     = "solicitacao.criar"
	PermRequestDecide     = "solicitacao.decidir"
	PermStockView         = "estoque.visualizar"
	PermStockTransfer     = "estoque.transferir"
	PermStockAdjust       = "estoque.ajustar"
	PermCancellationView  = "cancelamento.visualizar"
	PermCancellationWrite = "cancelamento.devolver"
)

// User is an operator account. Accounts must be active and approved
// before a session resolves.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsApproved   bool      `json:"is_approved" db:"is_approved"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the persistent record behind an issued token. A token only
// resolves while its session row is unrevoked and unexpired.
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Revoked   bool      `db:"revoked"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Identity is the resolved caller of one RPC: user id, role and the
// permission set evaluated per action.
type Identity struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Permissions []string  `json:"permissions"`
}

// Can reports whether the identity carries the given permission.
// Admins carry everything.
func (i *Identity) Can(permission string) bool {
	if i.Role == RoleAdmin {
		return true
	}
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
