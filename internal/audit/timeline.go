package audit

import "time"

// TimelineFilters narrows the audit timeline. From and To are calendar days;
// To is inclusive.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	UserID   string
	Action   string
	Resource string
	Page     int
	PageSize int
}

// TimelineRow is one audit_logs entry joined with its actor.
type TimelineRow struct {
	ID        int64          `json:"id"`
	At        time.Time      `json:"createdAt"`
	UserID    string         `json:"userId,omitempty"`
	UserName  string         `json:"userName,omitempty"`
	UserEmail string         `json:"userEmail,omitempty"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
}

// PagingInfo is keyset-free page metadata: the timeline never counts rows,
// it only looks one row ahead.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Result bundles a timeline page with its paging metadata.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}
