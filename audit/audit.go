// Package audit appends immutable event records for state-changing actions.
// Recording is fire-and-forget: a failed write is logged and swallowed, never
// surfaced to the caller, because audit failure must not block a financial
// operation that already committed.
package audit

import (
	"encoding/json"
	"log"
	"sync"

	"kampuspay/models"

	"gorm.io/gorm"
)

// Actions mirror the user-facing operations that produce audit entries.
const (
	ActionLogin                 = "LOGIN"
	ActionTopupRequested        = "TOPUP_REQUESTED"
	ActionTopupApproved         = "TOPUP_APPROVED"
	ActionTopupRejected         = "TOPUP_REJECTED"
	ActionPaymentSuccess        = "PAYMENT_SUCCESS"
	ActionTransferSent          = "TRANSFER_SENT"
	ActionTagihanCreated        = "TAGIHAN_CREATED"
	ActionTagihanUpdated        = "TAGIHAN_UPDATED"
	ActionTagihanDeleted        = "TAGIHAN_DELETED"
	ActionTagihanStatusChanged  = "TAGIHAN_STATUS_CHANGED"
	ActionOperatorCreated       = "OPERATOR_CREATED"
	ActionOperatorDeleted       = "OPERATOR_DELETED"
	ActionOperatorStatusChanged = "OPERATOR_STATUS_CHANGED"
	ActionUserCreated           = "USER_CREATED"
	ActionUserStatusChanged     = "USER_STATUS_CHANGED"
	ActionUserPasswordReset     = "USER_PASSWORD_RESET"
	ActionPengeluaranCreated    = "PENGELUARAN_CREATED"
	ActionPasswordChanged       = "PASSWORD_CHANGED"
	ActionPinChanged            = "PIN_CHANGED"
)

// Detail is the free-form JSON payload attached to an entry.
type Detail map[string]any

type entry struct {
	actorID uint
	action  string
	detail  Detail
	ip      string
}

// Sink buffers entries on a channel and writes them from a single background
// goroutine, decoupling audit persistence from the request path. Record
// never blocks: when the buffer is full the entry is dropped with a log
// line. Close drains what is queued.
type Sink struct {
	db      *gorm.DB
	ch      chan entry
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

func NewSink(db *gorm.DB) *Sink {
	s := &Sink{
		db:   db,
		ch:   make(chan entry, 256),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	for e := range s.ch {
		s.write(e)
	}
	close(s.done)
}

func (s *Sink) write(e entry) {
	detail, err := json.Marshal(e.detail)
	if err != nil {
		detail = []byte("{}")
	}
	row := models.AuditLog{
		ActorID: e.actorID,
		Action:  e.action,
		Detail:  string(detail),
	}
	if e.ip != "" {
		row.IPAddress = &e.ip
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("audit: failed to record %s for actor %d: %v", e.action, e.actorID, err)
	}
}

// Record queues an audit entry. It never blocks and never returns an error.
func (s *Sink) Record(actorID uint, action string, detail Detail) {
	s.RecordIP(actorID, action, detail, "")
}

// RecordIP is Record with the caller's remote address attached. The closed
// check and the send share the mutex so a Close racing a late Record drops
// the entry instead of panicking on the closed channel.
func (s *Sink) RecordIP(actorID uint, action string, detail Detail, ip string) {
	if detail == nil {
		detail = Detail{}
	}
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		log.Printf("audit: sink closed, dropping %s for actor %d", action, actorID)
		return
	}
	select {
	case s.ch <- entry{actorID: actorID, action: action, detail: detail, ip: ip}:
	default:
		log.Printf("audit: buffer full, dropping %s for actor %d", action, actorID)
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (s *Sink) Close() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.closeMu.Unlock()
	<-s.done
}
