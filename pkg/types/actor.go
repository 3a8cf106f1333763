package types

// Role is the privilege level of an authenticated actor. Leads carry the
// elevated privilege that bypasses locks and approves edit requests.
type Role string

const (
	RoleMember Role = "member"
	RoleLead   Role = "lead"
)

// Actor identifies who is performing an operation.
type Actor struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// Elevated reports whether the actor may act on locked decisions and
// resolve edit requests.
func (a Actor) Elevated() bool {
	return a.Role == RoleLead
}

// SystemActor runs background evaluation. It is elevated so scheduled
// recomputation is never blocked by an administrative lock.
var SystemActor = Actor{Subject: "system", Role: RoleLead}
