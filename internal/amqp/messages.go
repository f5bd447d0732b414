package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message kinds carried on the jobs queue.
const (
	KindReportJob  = "report_job"
	KindMirrorSync = "mirror_sync"
)

// Envelope wraps every queued message with its kind so one queue can
// carry both job types.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// ReportJob asks the worker to build and deliver a report. Dates are
// ISO (YYYY-MM-DD); the worker re-parses and re-validates the range.
type ReportJob struct {
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Timestamp time.Time `json:"timestamp"`
}

// MirrorSync asks the worker to copy one expense to the external
// spreadsheet mirror. Only the id travels; the worker fetches the row.
type MirrorSync struct {
	ExpenseID int64     `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportJob(userID, chatID int64, start, end string) *ReportJob {
	return &ReportJob{
		UserID:    userID,
		ChatID:    chatID,
		Start:     start,
		End:       end,
		Timestamp: time.Now(),
	}
}

func NewMirrorSync(expenseID int64) *MirrorSync {
	return &MirrorSync{ExpenseID: expenseID, Timestamp: time.Now()}
}

func envelope(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

// DecodeEnvelope parses a queued message into its envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("envelope has no kind")
	}
	return env, nil
}

// ReportJobFromEnvelope decodes the payload of a report_job envelope.
func ReportJobFromEnvelope(env Envelope) (*ReportJob, error) {
	var job ReportJob
	if err := json.Unmarshal(env.Payload, &job); err != nil {
		return nil, fmt.Errorf("unmarshal report job: %w", err)
	}
	return &job, nil
}

// MirrorSyncFromEnvelope decodes the payload of a mirror_sync envelope.
func MirrorSyncFromEnvelope(env Envelope) (*MirrorSync, error) {
	var msg MirrorSync
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal mirror sync: %w", err)
	}
	return &msg, nil
}
