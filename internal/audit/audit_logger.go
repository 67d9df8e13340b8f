package audit

import (
	"encoding/json"
	"log/slog"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	AccountID     string    `json:"account_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// Logger writes one AUDIT line per ledger event.
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With("module", "audit"), now: time.Now}
}

func (a *Logger) LogTransfer(transactionID, projectNo, fromAccount, toAccount, amount, status string) {
	a.log(AuditEvent{
		EventType:     "TRANSFER",
		TransactionID: transactionID,
		AccountID:     fromAccount,
		Amount:        amount,
		Status:        status,
		Details: map[string]string{
			"project_no": projectNo,
			"to_account": toAccount,
		},
	})
}

func (a *Logger) LogVerification(transactionID string, verified bool) {
	status := "SUCCESS"
	if !verified {
		status = "FAILED"
	}
	a.log(AuditEvent{
		EventType:     "VERIFY",
		TransactionID: transactionID,
		Status:        status,
	})
}

func (a *Logger) LogError(transactionID, accountID string, err error) {
	a.log(AuditEvent{
		EventType:     "ERROR",
		TransactionID: transactionID,
		AccountID:     accountID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *Logger) LogOperation(accountID, operation, details string) {
	a.log(AuditEvent{
		EventType: operation,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	})
}

func (a *Logger) log(event AuditEvent) {
	event.Timestamp = a.now().UTC()
	data, _ := json.Marshal(event)
	a.logger.Info("AUDIT", "event", string(data))
}
