// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type EntryID string
type CellID string
type ScheduleID string

func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

func NewCellID() CellID {
	return CellID(uuid.New().String())
}

func NewScheduleID() ScheduleID {
	return ScheduleID(uuid.New().String())
}
