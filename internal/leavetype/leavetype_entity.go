package leavetype

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Credit frequencies a leave type can be configured with.
const (
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencyHalfYearly = "half_yearly"
	FrequencyYearly     = "yearly"
	FrequencyNextYear   = "next_year"
	FrequencyManual     = "manual"
)

const (
	GenderFilterAll    = "all"
	GenderFilterMale   = "male"
	GenderFilterFemale = "female"
)

// Declared joining-period restriction variants. Only the probation exclusion
// is enforced; the others exist in configuration but have no behavior upstream.
const (
	RestrictionExcludeJoiningMonth = "exclude_joining_month"
	RestrictionExcludeFirst3Months = "exclude_first_3_months"
	RestrictionExcludeProbation    = "exclude_probation_period"
)

const (
	CarryForwardKeep   = "carry_forward"
	CarryForwardLapse  = "lapse"
	CarryForwardEncash = "encash"
)

// LeaveType is per-tenant leave configuration, owned by the (external) policy
// admin module and read-only here.
type LeaveType struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_types_tenant_code,unique"`
	Code     string    `gorm:"type:varchar(20);not null;index:idx_leave_types_tenant_code,unique"`
	Name     string    `gorm:"type:varchar(100);not null"`

	CycleStartMonth int  `gorm:"type:int;not null;default:1"`
	CycleEndMonth   int  `gorm:"type:int;not null;default:12"`
	IsPaid          bool `gorm:"not null;default:true"`

	CreditFrequency  string `gorm:"type:varchar(20);not null;default:'yearly'"`
	CreditDayOfMonth *int   `gorm:"type:int"`

	// LeavesToCredit is the default per-cycle grant; the status-specific
	// fields override it when set for an employee in that status.
	LeavesToCredit           decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	ActiveLeavesToCredit     *decimal.Decimal `gorm:"type:numeric(6,2)"`
	ProbationLeavesToCredit  *decimal.Decimal `gorm:"type:numeric(6,2)"`
	InternLeavesToCredit     *decimal.Decimal `gorm:"type:numeric(6,2)"`
	ContractorLeavesToCredit *decimal.Decimal `gorm:"type:numeric(6,2)"`
	SeparatedLeavesToCredit  *decimal.Decimal `gorm:"type:numeric(6,2)"`
	RoundCredits             bool             `gorm:"not null;default:false"`

	AllowedStatuses           string `gorm:"type:varchar(200);not null;default:'active'"`
	GenderFilter              string `gorm:"type:varchar(10);not null;default:'all'"`
	RestrictAfterJoining      bool   `gorm:"not null;default:false"`
	JoiningRestrictionVariant string `gorm:"type:varchar(40)"`

	CarryForwardType string           `gorm:"type:varchar(20);not null;default:'lapse'"`
	MaxCarryForward  *decimal.Decimal `gorm:"type:numeric(6,2)"`
	MaxBalance       *decimal.Decimal `gorm:"type:numeric(6,2)"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// AllowedStatusSet parses the comma-separated status filter.
func (lt *LeaveType) AllowedStatusSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range strings.Split(lt.AllowedStatuses, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

type LeavePolicy struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(100);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// LeavePolicyMapping links a policy to a leave type. Mappings are only ever
// soft-deleted so historical ledger entries keep a resolvable configuration.
type LeavePolicyMapping struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	LeavePolicyID uuid.UUID `gorm:"type:uuid;not null;index:idx_policy_mappings_policy"`
	LeaveTypeID   uuid.UUID `gorm:"type:uuid;not null"`
	IsActive      bool      `gorm:"not null;default:true"`
	DisplayOrder  int       `gorm:"type:int;not null;default:0"`

	LeaveType *LeaveType `gorm:"foreignKey:LeaveTypeID"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
