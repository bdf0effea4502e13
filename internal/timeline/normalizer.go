// Package timeline converts heterogeneous raw activity records into the
// uniform, time-ordered event sequence every downstream stage consumes.
package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// RawRecord is one activity entry as delivered by the case source. Kind and
// timestamp formats vary across source systems; normalization flattens them.
type RawRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	Author     string `json:"author"`
	OccurredAt string `json:"occurred_at"`
	Direction  string `json:"direction"`
}

// kindMap flattens the source system's record kinds onto event kinds.
// Unknown kinds are skipped, not fatal.
var kindMap = map[string]domain.EventKind{
	"customer_message": domain.EventKindCustomerMessage,
	"email_inbound":    domain.EventKindCustomerMessage,
	"email_outbound":   domain.EventKindCustomerMessage,
	"portal_comment":   domain.EventKindCustomerMessage,
	"internal_note":    domain.EventKindInternalNote,
	"case_note":        domain.EventKindInternalNote,
	"call_summary":     domain.EventKindCallSummary,
	"phone_log":        domain.EventKindCallSummary,
}

// timestampLayouts lists accepted OccurredAt formats, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Normalize converts raw records into an ordered TimelineEvent sequence.
// Ordering is by occurred-at, ties resolved by input order. A record with a
// missing or unparseable timestamp fails the whole case: ordering is
// load-bearing downstream and cannot be silently defaulted.
func Normalize(caseID string, records []RawRecord) ([]domain.TimelineEvent, error) {
	events := make([]domain.TimelineEvent, 0, len(records))
	for i, record := range records {
		kind, ok := kindMap[strings.ToLower(strings.TrimSpace(record.Kind))]
		if !ok {
			continue
		}
		occurredAt, err := parseTimestamp(record.OccurredAt)
		if err != nil {
			return nil, errorutil.NewFormatError("activity record has no usable timestamp", map[string]any{
				"case_id":   caseID,
				"record_id": record.ID,
				"index":     i,
			})
		}
		events = append(events, domain.TimelineEvent{
			ID:         record.ID,
			CaseID:     caseID,
			Kind:       kind,
			Text:       record.Text,
			Author:     record.Author,
			OccurredAt: occurredAt,
			Outbound:   isOutbound(record),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events, nil
}

// isOutbound resolves message direction. The explicit direction field wins;
// the email_outbound kind implies it when the field is absent.
func isOutbound(record RawRecord) bool {
	direction := strings.ToLower(strings.TrimSpace(record.Direction))
	if direction != "" {
		return direction == "outbound"
	}
	return strings.ToLower(strings.TrimSpace(record.Kind)) == "email_outbound"
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errorutil.NewFormatError("empty timestamp", nil)
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
