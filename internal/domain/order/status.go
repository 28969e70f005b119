package order

// Status is the lifecycle position of an order line
type Status string

const (
	StatusUncommitted Status = "UNCOMMITTED"
	StatusQueued      Status = "QUEUED"
	StatusPreparing   Status = "PREPARING"
	StatusReady       Status = "READY"
	StatusClosed      Status = "CLOSED"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusUncommitted, StatusQueued, StatusPreparing, StatusReady, StatusClosed:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Next returns the single forward step from s
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusUncommitted:
		return StatusQueued, true
	case StatusQueued:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	case StatusReady:
		return StatusClosed, true
	}
	return "", false
}

// CanTransitionTo reports whether target is exactly one step forward
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := s.Next()
	return ok && next == target
}

// Previous is the operator-initiated kitchen revert: one step back, and only
// while the line is on the kitchen screen.
func (s Status) Previous() (Status, bool) {
	switch s {
	case StatusPreparing:
		return StatusQueued, true
	case StatusReady:
		return StatusPreparing, true
	}
	return "", false
}

// InKitchen reports whether the line is shown on the kitchen display
func (s Status) InKitchen() bool {
	return s == StatusQueued || s == StatusPreparing || s == StatusReady
}
