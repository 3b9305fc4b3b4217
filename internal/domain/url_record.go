// Package domain holds the plain record types shared by every adapter and
// service in this module. None of these types know how they are persisted.
package domain

import "time"

// UrlRecord is the durable representation of one shortened URL. It is
// owned by the primary record store and mutated only by the URL service.
type UrlRecord struct {
	ID               string         `db:"id" json:"id"`
	Code             string         `db:"code" json:"code"`
	Original         string         `db:"original" json:"original"`
	Normalized       string         `db:"normalized" json:"normalized"`
	HitCount         int64          `db:"hit_count" json:"hitCount"`
	CustomAlias      *string        `db:"custom_alias" json:"customAlias,omitempty"`
	ExpiresAt        *time.Time     `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updatedAt"`
	CreatorIP        *string        `db:"creator_ip" json:"creatorIp,omitempty"`
	CreatorUserAgent *string        `db:"creator_user_agent" json:"creatorUserAgent,omitempty"`
	Metadata         map[string]any `db:"-" json:"metadata,omitempty"`
}

// IsResolvable reports whether the record may currently be redirected to,
// i.e. it has no expiry or its expiry is still in the future relative to at.
func (r *UrlRecord) IsResolvable(at time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(at)
}

// IsExpired is the complement of IsResolvable, kept as a separate named
// predicate because callers read more naturally with it at call sites that
// decide between 410 and anything else.
func (r *UrlRecord) IsExpired(at time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(at)
}

// CachedTarget is the slim, TTL-bounded projection of a UrlRecord that the
// redirect cache stores. It is eventually consistent with the record it was
// derived from.
type CachedTarget struct {
	Code      string     `json:"code"`
	Original  string     `json:"original"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	HitCount  int64      `json:"hitCount"`
}

// HitEvent is an immutable observation of one redirect, published to the
// event bus and later consumed into counter rows.
type HitEvent struct {
	Code       string    `json:"code"`
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	DeviceType string    `json:"deviceType,omitempty"`
	Browser    string    `json:"browser,omitempty"`
	OS         string    `json:"os,omitempty"`
}

// SortField enumerates the columns the primary store's List operation may
// sort by.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortHitCount  SortField = "hitCount"
	SortOriginal  SortField = "original"
	SortCode      SortField = "code"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// StatusFilter narrows a List query to all records, only active
// (resolvable) ones, or only expired ones.
type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusActive  StatusFilter = "active"
	StatusExpired StatusFilter = "expired"
)

// ListFilter carries the search/pagination/sort parameters of a List call.
type ListFilter struct {
	Search string
	Status StatusFilter
	Sort   SortField
	Order  SortOrder
	Offset int
	Limit  int
}

// ListResult is one page of UrlRecords plus the total matching count.
type ListResult struct {
	Records []*UrlRecord
	Total   int64
}

// URLStats is the payload for GET /api/urls/stats.
type URLStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Expired int64 `json:"expired"`
}
