package store

import "github.com/google/uuid"

type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsSuperuser bool      `json:"is_superuser"`
}

type Folder struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Title      string     `json:"title"`
	Breadcrumb []string   `json:"breadcrumb,omitempty"`
}

type Document struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FolderID  uuid.UUID `json:"folder_id"`
	Title     string    `json:"title"`
	Lang      string    `json:"lang"`
	OCRStatus string    `json:"ocr_status"`
	Version   int       `json:"version"`
	Pages     []Page    `json:"pages,omitempty"`
	Tags      []Tag     `json:"tags,omitempty"`
}

type Page struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Number     int       `json:"number"`
	Text       string    `json:"text"`
	Lang       string    `json:"lang"`
	Angle      int       `json:"angle"`
}

type Tag struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	FGColor string    `json:"fg_color"`
	BGColor string    `json:"bg_color"`
}

// SearchResult is one hit of GET /search. NodeType is "document" or "folder".
type SearchResult struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	NodeType   string    `json:"node_type"`
	Breadcrumb []string  `json:"breadcrumb"`
	Highlight  []string  `json:"highlight,omitempty"`
}
