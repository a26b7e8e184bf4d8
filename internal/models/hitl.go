package models

import "time"

// Proposal is one human-in-the-loop approval request awaiting review.
type Proposal struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ProposalID  string `gorm:"size:36;uniqueIndex;not null"`
	ActorUserID string `gorm:"size:64;not null"`
	ActorRole   string `gorm:"size:16;not null"`
	ActionType  string `gorm:"size:32;not null"`
	TargetType  string `gorm:"size:16;not null"`
	TargetID    string `gorm:"size:64;index;not null"`
	Payload     string `gorm:"type:text"`
	Reason      string `gorm:"type:text"`
	Source      string `gorm:"size:32;default:COS_CHAT"`
	Status      string `gorm:"size:16;index;default:PENDING"`
	DecidedBy   string `gorm:"size:64"`
	DecidedAt   *time.Time
	CreatedAt   time.Time
}

// Proposal statuses.
const (
	ProposalPending  = "PENDING"
	ProposalApproved = "APPROVED"
	ProposalRejected = "REJECTED"
)
