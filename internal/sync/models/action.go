package models

import "github.com/pkg/errors"

// Action исход обработки одной сущности
type Action string

const (
	ActionCreated          Action = "created"
	ActionUpdated          Action = "updated"
	ActionSkipped          Action = "skipped"
	ActionCreateFailed     Action = "create_failed"
	ActionUpdateFailed     Action = "update_failed"
	ActionValidationFailed Action = "validation_failed"
	ActionMappingFailed    Action = "mapping_failed"
)

var actions = []Action{
	ActionCreated,
	ActionUpdated,
	ActionSkipped,
	ActionCreateFailed,
	ActionUpdateFailed,
	ActionValidationFailed,
	ActionMappingFailed,
}

func (a Action) String() string {
	return string(a)
}

func (a Action) Valid() bool {
	for _, v := range actions {
		if v == a {
			return true
		}
	}
	return false
}

// Failed действие означает ошибку синхронизации сущности
func (a Action) Failed() bool {
	switch a {
	case ActionCreateFailed, ActionUpdateFailed, ActionValidationFailed:
		return true
	}
	return false
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", errors.Errorf("unknown action %q", s)
	}
	return a, nil
}

// Status статус запуска синхронизации
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	return s == StatusStarted || s == StatusCompleted || s == StatusFailed
}

// SyncType вид запуска
type SyncType string

const (
	SyncFull  SyncType = "full"
	SyncDelta SyncType = "delta"
)

func (t SyncType) String() string {
	return string(t)
}

func ParseSyncType(s string) (SyncType, error) {
	switch SyncType(s) {
	case SyncFull, SyncDelta:
		return SyncType(s), nil
	}
	return "", errors.Errorf("unknown sync type %q", s)
}
