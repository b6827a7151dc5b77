package model

import "time"

// AuditAction names what happened to a slot.
type AuditAction string

// Audit actions.
const (
	ActionDuplicateDetected       AuditAction = "duplicate_detected"
	ActionDuplicateResolvedAuto   AuditAction = "duplicate_resolved_auto"
	ActionDuplicateResolvedManual AuditAction = "duplicate_resolved_manual"
	ActionConflictDismissed       AuditAction = "conflict_dismissed"
	ActionJoinedChecked           AuditAction = "joined_checked"
	ActionJoinedUnchecked         AuditAction = "joined_unchecked"
	ActionYouthChecked            AuditAction = "youth_checked"
	ActionYouthUnchecked          AuditAction = "youth_unchecked"
)

// Resolution names how a duplicate was resolved.
type Resolution string

// Resolutions.
const (
	ResolutionAutoReplace Resolution = "auto_replace"
	ResolutionManualEntry Resolution = "manual_entry"
)

// Trigger names the user action that caused an event.
type Trigger string

// Triggers.
const (
	TriggerManualAssignment Trigger = "manual_assignment"
	TriggerJoinedToggle     Trigger = "joined_toggle"
	TriggerYouthToggle      Trigger = "youth_toggle"
	TriggerConflictModal    Trigger = "conflict_modal"
)

// AuditEvent is an append-only record of a conflict or toggle.
type AuditEvent struct {
	ID                      string      `json:"id"                                bson:"id"`
	Timestamp               time.Time   `json:"timestamp"                         bson:"timestamp"`
	Action                  AuditAction `json:"action"                            bson:"action"`
	Resolution              Resolution  `json:"resolution,omitempty"              bson:"resolution,omitempty"`
	Trigger                 Trigger     `json:"trigger,omitempty"                 bson:"trigger,omitempty"`
	MonthStart              string      `json:"monthStart"                        bson:"month_start"`
	Date                    string      `json:"date"                              bson:"date"`
	Type                    MeetingType `json:"type"                              bson:"type"`
	PreviousCoordinatorID   string      `json:"previousCoordinatorId,omitempty"   bson:"previous_coordinator_id,omitempty"`
	PreviousCoordinatorName string      `json:"previousCoordinatorName,omitempty" bson:"previous_coordinator_name,omitempty"`
	NewCoordinatorID        string      `json:"newCoordinatorId,omitempty"        bson:"new_coordinator_id,omitempty"`
	NewCoordinatorName      string      `json:"newCoordinatorName,omitempty"      bson:"new_coordinator_name,omitempty"`
}

// LeadLog records who led a meeting once its week has ended.
type LeadLog struct {
	Date            string      `json:"date"            bson:"date"`
	Type            MeetingType `json:"type"            bson:"type"`
	CoordinatorID   string      `json:"coordinatorId"   bson:"coordinator_id"`
	CoordinatorName string      `json:"coordinatorName" bson:"coordinator_name"`
	MonthStart      string      `json:"monthStart"      bson:"month_start"`
	RecordedAt      time.Time   `json:"recordedAt"      bson:"recorded_at"`
}

// Key identifies the slot a lead log belongs to.
func (l LeadLog) Key() string {
	return SlotKey(l.Date, l.Type)
}
