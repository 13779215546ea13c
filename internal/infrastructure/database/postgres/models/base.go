package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert. IDs are generated in Go
// so the schema does not depend on database-side uuid functions.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&RoleModel{},
		&AgentModel{},
		&AccountModel{},
		&AccountHistoryModel{},
		&PasswordResetTokenModel{},
		&DeviceModel{},
		&DeviceAssignmentModel{},
		&APIKeyModel{},
		&EmailRecordModel{},
		&DeviceLogModel{},
	}
}
