package role

import (
	"time"

	"github.com/google/uuid"
)

const (
	Superuser       = "SUPERUSER"
	Agent           = "AGENT"
	AgentManager    = "AGENT_MANAGER"
	AgentSupervisor = "AGENT_SUPERVISOR"
	AgentOfficer    = "AGENT_OFFICER"
	Regular         = "REGULAR"
)

// DefaultNames are seeded on startup and cannot be renamed or deleted.
var DefaultNames = []string{Superuser, Agent, AgentManager, AgentSupervisor, AgentOfficer, Regular}

// EmployeeNames are the roles an agency can hand out to its staff.
var EmployeeNames = []string{AgentSupervisor, AgentOfficer}

// Role is a named tag checked against per-operation allow-lists.
type Role struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

func IsDefault(name string) bool {
	return contains(DefaultNames, name)
}

func IsEmployee(name string) bool {
	return contains(EmployeeNames, name)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
