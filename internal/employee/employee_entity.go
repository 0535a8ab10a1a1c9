package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employment statuses as maintained by the (external) HR core.
const (
	StatusActive     = "active"
	StatusProbation  = "probation"
	StatusIntern     = "intern"
	StatusSeparated  = "separated"
	StatusAbsconded  = "absconded"
	StatusTerminated = "terminated"
	StatusSuspended  = "suspended"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Employee is a read-only snapshot of the HR core's employee record. The
// ledger engine never writes this table; it consumes status, gender, joining
// date and the assigned leave policy.
type Employee struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_employees_tenant_status"`
	Status        string     `gorm:"type:varchar(20);not null;default:'active';index:idx_employees_tenant_status"`
	Gender        string     `gorm:"type:varchar(10);not null;default:'male'"`
	DateOfJoining time.Time  `gorm:"type:date;not null"`
	LeavePolicyID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
