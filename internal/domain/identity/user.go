package identity

// Role of a floor user
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCashier Role = "CASHIER"
	RoleWaiter  Role = "WAITER"
	RoleKitchen Role = "KITCHEN"
)

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// User is the redacted view of an account: never a password hash or token
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}
