package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docshelf/internal/event"
	"docshelf/internal/store"
	"docshelf/internal/taskmon"
)

// Store is the slice of the persistence layer the handlers need. *store.Store
// satisfies it; tests plug in fakes.
type Store interface {
	CreateDocument(ctx context.Context, p store.CreateDocumentParams) (store.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (store.Document, error)
	GetPage(ctx context.Context, id uuid.UUID) (store.Page, error)
	DeletePages(ctx context.Context, ids []uuid.UUID) error
	ReorderPages(ctx context.Context, moves []store.PageMove) error
	RotatePages(ctx context.Context, rotations []store.PageRotation) error
	MovePagesToFolder(ctx context.Context, p store.MovePagesToFolderParams) ([]store.Document, error)
	MovePagesToDocument(ctx context.Context, p store.MovePagesToDocumentParams) error
	CreateFolder(ctx context.Context, parentID uuid.UUID, title string) (store.Folder, error)
	GetFolder(ctx context.Context, id uuid.UUID) (store.Folder, error)
	ListTags(ctx context.Context) ([]store.Tag, error)
	CreateTag(ctx context.Context, tag store.Tag) (store.Tag, error)
	TagDocument(ctx context.Context, docID, tagID uuid.UUID) error
	Search(ctx context.Context, query string) ([]store.SearchResult, error)
	Ping(ctx context.Context) error
}

func newMux(st Store, tasks taskmon.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents", handleCreateDocument(st, tasks))
	mux.HandleFunc("GET /documents/{id}", handleGetDocument(st))
	mux.HandleFunc("POST /documents/{id}/tags", handleTagDocument(st))
	mux.HandleFunc("GET /pages/{id}", handleGetPage(st))
	mux.HandleFunc("DELETE /pages/{id}", handleDeletePage(st))
	mux.HandleFunc("POST /pages/delete", handleDeletePages(st))
	mux.HandleFunc("POST /pages/reorder", handleReorderPages(st))
	mux.HandleFunc("POST /pages/rotate", handleRotatePages(st))
	mux.HandleFunc("POST /pages/move-to-folder", handleMovePagesToFolder(st))
	mux.HandleFunc("POST /pages/move-to-document", handleMovePagesToDocument(st))
	mux.HandleFunc("POST /folders", handleCreateFolder(st))
	mux.HandleFunc("GET /folders/{id}", handleGetFolder(st))
	mux.HandleFunc("GET /tags", handleListTags(st))
	mux.HandleFunc("POST /tags", handleCreateTag(st))
	mux.HandleFunc("GET /search", handleSearch(st))
	mux.HandleFunc("GET /tasks/{id}", handleGetTask(tasks))
	mux.HandleFunc("GET /healthz", handleHealthz(st))
	return mux
}

type createDocumentRequest struct {
	FolderID uuid.UUID `json:"folder_id"`
	Title    string    `json:"title"`
	Lang     string    `json:"lang"`
	Content  string    `json:"content"`
}

type createDocumentResponse struct {
	store.Document
	TaskID string `json:"task_id"`
}

func handleCreateDocument(st Store, tasks taskmon.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Title == "" || req.FolderID == uuid.Nil {
			http.Error(w, "title and folder_id are required", http.StatusBadRequest)
			return
		}

		docID := uuid.New()
		taskID := uuid.NewString()

		// The RECEIVED entry must land before the transaction commits: the
		// relay publishes the task on commit, and the worker may record
		// STARTED or SUCCEEDED at any point after that. Writing RECEIVED
		// later would clobber the final state. An entry left behind by a
		// failed create ages out through the store's TTL.
		if err := tasks.Set(r.Context(), taskmon.Task{
			ID:         taskID,
			Name:       event.IngestDocument,
			DocumentID: docID.String(),
			State:      taskmon.StateReceived,
		}); err != nil {
			zap.L().Warn("record task status", zap.String("task_id", taskID), zap.Error(err))
		}

		doc, err := st.CreateDocument(r.Context(), store.CreateDocumentParams{
			ID:       docID,
			TaskID:   taskID,
			FolderID: req.FolderID,
			Title:    req.Title,
			Lang:     req.Lang,
			Content:  req.Content,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createDocumentResponse{Document: doc, TaskID: taskID})
	}
}

func handleGetDocument(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		doc, err := st.GetDocument(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

type tagDocumentRequest struct {
	TagID uuid.UUID `json:"tag_id"`
}

func handleTagDocument(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req tagDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.TagID == uuid.Nil {
			http.Error(w, "tag_id is required", http.StatusBadRequest)
			return
		}
		if err := st.TagDocument(r.Context(), id, req.TagID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetPage returns the page as plain text or JSON depending on the
// Accept header.
func handleGetPage(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		page, err := st.GetPage(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		if strings.Contains(r.Header.Get("Accept"), "text/plain") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(page.Text))
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleDeletePage(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := st.DeletePages(r.Context(), []uuid.UUID{id}); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type deletePagesRequest struct {
	Pages []uuid.UUID `json:"pages"`
}

func handleDeletePages(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deletePagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Pages) == 0 {
			http.Error(w, "pages is required", http.StatusBadRequest)
			return
		}
		if err := st.DeletePages(r.Context(), req.Pages); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reorderPagesRequest struct {
	Pages []store.PageMove `json:"pages"`
}

func handleReorderPages(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reorderPagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Pages) == 0 {
			http.Error(w, "pages is required", http.StatusBadRequest)
			return
		}
		if err := st.ReorderPages(r.Context(), req.Pages); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type rotatePagesRequest struct {
	Pages []store.PageRotation `json:"pages"`
}

func handleRotatePages(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rotatePagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Pages) == 0 {
			http.Error(w, "pages is required", http.StatusBadRequest)
			return
		}
		if err := st.RotatePages(r.Context(), req.Pages); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type movePagesToFolderRequest struct {
	Pages      []uuid.UUID `json:"pages"`
	Dst        uuid.UUID   `json:"dst"`
	SinglePage bool        `json:"single_page"`
}

// handleMovePagesToFolder extracts pages into new documents inside the target
// folder and returns the created documents.
func handleMovePagesToFolder(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req movePagesToFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Pages) == 0 || req.Dst == uuid.Nil {
			http.Error(w, "pages and dst are required", http.StatusBadRequest)
			return
		}
		docs, err := st.MovePagesToFolder(r.Context(), store.MovePagesToFolderParams{
			Pages:      req.Pages,
			FolderID:   req.Dst,
			SinglePage: req.SinglePage,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, docs)
	}
}

type movePagesToDocumentRequest struct {
	Pages []uuid.UUID `json:"pages"`
	Dst   uuid.UUID   `json:"dst"`
	// Position is the 0-based insert point in the target document; absent or
	// out of range means append.
	Position *int `json:"position"`
}

func handleMovePagesToDocument(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req movePagesToDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Pages) == 0 || req.Dst == uuid.Nil {
			http.Error(w, "pages and dst are required", http.StatusBadRequest)
			return
		}
		position := -1
		if req.Position != nil {
			position = *req.Position
		}
		err := st.MovePagesToDocument(r.Context(), store.MovePagesToDocumentParams{
			Pages:      req.Pages,
			DocumentID: req.Dst,
			Position:   position,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createFolderRequest struct {
	ParentID uuid.UUID `json:"parent_id"`
	Title    string    `json:"title"`
}

func handleCreateFolder(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Title == "" || req.ParentID == uuid.Nil {
			http.Error(w, "title and parent_id are required", http.StatusBadRequest)
			return
		}
		folder, err := st.CreateFolder(r.Context(), req.ParentID, req.Title)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, folder)
	}
}

func handleGetFolder(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		folder, err := st.GetFolder(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, folder)
	}
}

func handleListTags(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := st.ListTags(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

func handleCreateTag(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req store.Tag
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		tag, err := st.CreateTag(r.Context(), req)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tag)
	}
}

func handleSearch(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			http.Error(w, "query parameter q is required", http.StatusBadRequest)
			return
		}
		results, err := st.Search(r.Context(), query)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleGetTask(tasks taskmon.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := tasks.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, taskmon.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			zap.L().Error("load task", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func handleHealthz(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrLastPage),
		errors.Is(err, store.ErrBadReorder),
		errors.Is(err, store.ErrPagesSpanDocuments),
		errors.Is(err, store.ErrMoveIntoSource):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		zap.L().Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
