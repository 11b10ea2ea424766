package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskCommissionsRelease = "commissions.release"

const TaskReconcileUnassigned = "appointments.reconcile_unassigned"

// SweepPayload is carried by both periodic sweeps. The sweeps read current
// state, so the payload is informational only.
type SweepPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewCommissionsReleaseTask(at time.Time) (*asynq.Task, error) {
	return newSweepTask(TaskCommissionsRelease, at)
}

func NewReconcileUnassignedTask(at time.Time) (*asynq.Task, error) {
	return newSweepTask(TaskReconcileUnassigned, at)
}

func newSweepTask(name string, at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(SweepPayload{RequestedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, data), nil
}

func ParseSweepPayload(task *asynq.Task) (SweepPayload, error) {
	var payload SweepPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepPayload{}, err
	}
	return payload, nil
}
