package extrahop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultAuditBatchSize is the page size used when collecting the full audit log
const defaultAuditBatchSize = 1000

// AuditLogEntry represents a single audit log record
type AuditLogEntry struct {
	ID        int64           `json:"id"`
	OccurTime int64           `json:"occur_time"`
	Time      int64           `json:"time,omitempty"`
	Body      json.RawMessage `json:"body"`
}

// AuditLog retrieves a single page of the audit log
func (session *Session) AuditLog(ctx context.Context, limit, offset int) ([]AuditLogEntry, error) {
	return request[[]AuditLogEntry](ctx, session, http.MethodGet, fmt.Sprintf("/auditlog?limit=%d&offset=%d", limit, offset), nil)
}

// CollectAuditLog pages through the whole audit log in increasing offset order.
// A page shorter than the batch size signals the end of the data. The context is
// checked before every page request: cancelling it stops further pagination but
// keeps the entries collected so far, mirroring a user-triggered stop. A transient
// error likewise halts pagination and is returned alongside the accumulated
// entries instead of discarding them.
func (session *Session) CollectAuditLog(ctx context.Context, batchSize int) ([]AuditLogEntry, error) {
	if batchSize <= 0 {
		batchSize = defaultAuditBatchSize
	}

	var entries []AuditLogEntry
	offset := 0
	for {
		if ctx.Err() != nil {
			return entries, nil
		}

		batch, err := session.AuditLog(ctx, batchSize, offset)
		if err != nil {
			return entries, err
		}
		entries = append(entries, batch...)
		if len(batch) < batchSize {
			return entries, nil
		}
		offset += batchSize

		session.betweenPages(ctx)
	}
}

// betweenPages applies the fixed inter-page delay without outliving the context
func (session *Session) betweenPages(ctx context.Context) {
	if session.pageDelay <= 0 {
		return
	}
	select {
	case <-time.After(session.pageDelay):
	case <-ctx.Done():
	}
}
