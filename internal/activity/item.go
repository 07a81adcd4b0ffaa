// Package activity builds the unified recent-activity feed: heterogeneous
// rows from several backend tables normalized into one time-ordered shape.
package activity

import "time"

// Type tags the originating entity of a feed item.
type Type string

const (
	TypeProject    Type = "project"
	TypeDocument   Type = "document"
	TypeEvent      Type = "event"
	TypeDiscussion Type = "discussion"
)

// Item is the unified feed record every source row is normalized into.
type Item struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Country   string    `json:"country"`
	Action    string    `json:"action"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Flag      string    `json:"flag"`
}

// Source rows keep each table's native field names; conversion into Item
// happens immediately at the fetch boundary so the normalizer stays
// exhaustive per type.

// ProjectRow mirrors the projects table.
type ProjectRow struct {
	ID        string
	Name      string
	Country   string
	CreatedAt time.Time
}

// DocumentRow mirrors the documents table.
type DocumentRow struct {
	ID         string
	Title      string
	Country    string
	UploadedAt time.Time
}

// EventRow mirrors the events table.
type EventRow struct {
	ID       string
	Title    string
	Country  string
	StartsAt time.Time
}

// DiscussionRow mirrors the discussions table.
type DiscussionRow struct {
	ID       string
	Topic    string
	Country  string
	PostedAt time.Time
}

func (r ProjectRow) item() Item {
	return Item{
		ID:        r.ID,
		Type:      TypeProject,
		Country:   r.Country,
		Action:    "launched a new project",
		Title:     r.Name,
		Timestamp: r.CreatedAt,
		Flag:      Flag(r.Country),
	}
}

func (r DocumentRow) item() Item {
	return Item{
		ID:        r.ID,
		Type:      TypeDocument,
		Country:   r.Country,
		Action:    "published a document",
		Title:     r.Title,
		Timestamp: r.UploadedAt,
		Flag:      Flag(r.Country),
	}
}

func (r EventRow) item() Item {
	return Item{
		ID:        r.ID,
		Type:      TypeEvent,
		Country:   r.Country,
		Action:    "scheduled an event",
		Title:     r.Title,
		Timestamp: r.StartsAt,
		Flag:      Flag(r.Country),
	}
}

func (r DiscussionRow) item() Item {
	return Item{
		ID:        r.ID,
		Type:      TypeDiscussion,
		Country:   r.Country,
		Action:    "opened a discussion",
		Title:     r.Topic,
		Timestamp: r.PostedAt,
		Flag:      Flag(r.Country),
	}
}
