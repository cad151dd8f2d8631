package voicebot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/httpx"
)

// Filter narrows listings and exports. Zero values mean "no constraint".
type Filter struct {
	Language             string
	CLI                  string
	CallResolutionStatus string
	DurationMin          *int
	DurationMax          *int
	From                 *time.Time
	To                   *time.Time
}

const dateOnly = "2006-01-02"

// ParseFilter reads the query string filters. Unparsable durations are
// ignored; a date range applies only when both ends are given.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Language:             strings.TrimSpace(q.Get("language")),
		CLI:                  strings.TrimSpace(q.Get("cli")),
		CallResolutionStatus: strings.TrimSpace(q.Get("callResolutionStatus")),
		DurationMin:          parseInt(q.Get("durationMin")),
		DurationMax:          parseInt(q.Get("durationMax")),
	}
	rawFrom, rawTo := strings.TrimSpace(q.Get("dateFrom")), strings.TrimSpace(q.Get("dateTo"))
	if rawFrom != "" && rawTo != "" {
		from, _, err := parseDate(rawFrom)
		if err != nil {
			return Filter{}, httpx.NewError(httpx.ErrValidation, "Invalid dateFrom")
		}
		to, dayOnly, err := parseDate(rawTo)
		if err != nil {
			return Filter{}, httpx.NewError(httpx.ErrValidation, "Invalid dateTo")
		}
		if dayOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.From, f.To = &from, &to
	}
	return f, nil
}

func parseInt(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &n
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("voicebot: parse date %q: %w", raw, err)
	}
	return t, true, nil
}

// where renders the filter as a SQL predicate with positional arguments.
func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Language != "" {
		add("language = $%d", f.Language)
	}
	if f.CLI != "" {
		add("cli = $%d", f.CLI)
	}
	if f.CallResolutionStatus != "" {
		add("call_resolution_status = $%d", f.CallResolutionStatus)
	}
	if f.DurationMin != nil {
		add("duration_seconds >= $%d", *f.DurationMin)
	}
	if f.DurationMax != nil {
		add("duration_seconds <= $%d", *f.DurationMax)
	}
	if f.From != nil && f.To != nil {
		add("received_at >= $%d", *f.From)
		add("received_at <= $%d", *f.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
