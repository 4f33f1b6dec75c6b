package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

const JobCareerActions = "career_actions"

// DispatchEvent is the latest lifecycle step of one background career tick
// run. Redelivered dispatches whose event is completed are not run again.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	GameID       string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

// CareerActionsEvent describes a career tick dispatch of ticks weeks.
func CareerActionsEvent(dispatchID, gameID, path string, ticks int, status DispatchStatus) DispatchEvent {
	return DispatchEvent{
		DispatchID: dispatchID,
		JobName:    JobCareerActions,
		JobPath:    path,
		GameID:     gameID,
		Status:     status,
		Payload: map[string]any{
			"dispatch_id": dispatchID,
			"game_id":     gameID,
			"ticks":       ticks,
		},
	}
}

// Failed marks the event failed with err's message.
func (e DispatchEvent) Failed(err error) DispatchEvent {
	e.Status = StatusFailed
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

func (e DispatchEvent) Completed() bool {
	return e.Status == StatusCompleted
}
