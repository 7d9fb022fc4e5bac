package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docshelf/internal/store"
	"docshelf/internal/taskmon"
)

type fakeStore struct {
	createDocument func(store.CreateDocumentParams) (store.Document, error)
	getPage        func(uuid.UUID) (store.Page, error)
	deletePages    func([]uuid.UUID) error
	reorderPages   func([]store.PageMove) error
	moveToFolder   func(store.MovePagesToFolderParams) ([]store.Document, error)
	moveToDocument func(store.MovePagesToDocumentParams) error
	search         func(string) ([]store.SearchResult, error)
}

func (f *fakeStore) CreateDocument(_ context.Context, p store.CreateDocumentParams) (store.Document, error) {
	return f.createDocument(p)
}

func (f *fakeStore) GetDocument(context.Context, uuid.UUID) (store.Document, error) {
	return store.Document{}, store.ErrNotFound
}

func (f *fakeStore) GetPage(_ context.Context, id uuid.UUID) (store.Page, error) {
	return f.getPage(id)
}

func (f *fakeStore) DeletePages(_ context.Context, ids []uuid.UUID) error {
	return f.deletePages(ids)
}

func (f *fakeStore) ReorderPages(_ context.Context, moves []store.PageMove) error {
	return f.reorderPages(moves)
}

func (f *fakeStore) RotatePages(context.Context, []store.PageRotation) error { return nil }

func (f *fakeStore) MovePagesToFolder(_ context.Context, p store.MovePagesToFolderParams) ([]store.Document, error) {
	return f.moveToFolder(p)
}

func (f *fakeStore) MovePagesToDocument(_ context.Context, p store.MovePagesToDocumentParams) error {
	return f.moveToDocument(p)
}

func (f *fakeStore) CreateFolder(context.Context, uuid.UUID, string) (store.Folder, error) {
	return store.Folder{}, nil
}

func (f *fakeStore) GetFolder(context.Context, uuid.UUID) (store.Folder, error) {
	return store.Folder{}, store.ErrNotFound
}

func (f *fakeStore) ListTags(context.Context) ([]store.Tag, error) { return []store.Tag{}, nil }

func (f *fakeStore) CreateTag(_ context.Context, tag store.Tag) (store.Tag, error) {
	tag.ID = uuid.New()
	return tag, nil
}

func (f *fakeStore) TagDocument(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeStore) Search(_ context.Context, q string) ([]store.SearchResult, error) {
	return f.search(q)
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func newTestMux(f *fakeStore, tasks taskmon.Store) *http.ServeMux {
	if tasks == nil {
		tasks = taskmon.NewMemStore()
	}
	return newMux(f, tasks)
}

func TestCreateDocumentRecordsTaskStatus(t *testing.T) {
	tasks := taskmon.NewMemStore()
	f := &fakeStore{
		createDocument: func(p store.CreateDocumentParams) (store.Document, error) {
			assert.Equal(t, "invoice.pdf", p.Title)
			require.NotEqual(t, uuid.Nil, p.ID)
			require.NotEmpty(t, p.TaskID)

			// The RECEIVED entry must already exist when the document (and
			// with it the outbox row) is created: the worker may overwrite
			// the status immediately after commit, and a RECEIVED written
			// later would clobber the final state.
			task, err := tasks.Get(context.Background(), p.TaskID)
			require.NoError(t, err)
			assert.Equal(t, taskmon.StateReceived, task.State)
			assert.Equal(t, p.ID.String(), task.DocumentID)

			return store.Document{ID: p.ID, Title: p.Title}, nil
		},
	}
	mux := newTestMux(f, tasks)

	body := `{"folder_id":"` + uuid.NewString() + `","title":"invoice.pdf","content":"hello"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID     uuid.UUID `json:"id"`
		TaskID string    `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.TaskID)

	task, err := tasks.Get(context.Background(), resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, taskmon.StateReceived, task.State)
	assert.Equal(t, resp.ID.String(), task.DocumentID)
}

func TestCreateDocumentValidation(t *testing.T) {
	f := &fakeStore{
		createDocument: func(store.CreateDocumentParams) (store.Document, error) {
			t.Fatal("store must not be called")
			return store.Document{}, nil
		},
	}
	mux := newTestMux(f, nil)

	for name, body := range map[string]string{
		"missing title":     `{"folder_id":"` + uuid.NewString() + `"}`,
		"missing folder_id": `{"title":"a.pdf"}`,
		"not json":          `nope`,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestGetPageContentNegotiation(t *testing.T) {
	pageID := uuid.New()
	f := &fakeStore{
		getPage: func(id uuid.UUID) (store.Page, error) {
			require.Equal(t, pageID, id)
			return store.Page{ID: id, Number: 1, Text: "Hello Page!", Lang: "deu"}, nil
		},
	}
	mux := newTestMux(f, nil)

	req := httptest.NewRequest(http.MethodGet, "/pages/"+pageID.String(), nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello Page!", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	req = httptest.NewRequest(http.MethodGet, "/pages/"+pageID.String(), nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page store.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, "deu", page.Lang)
}

func TestGetPageInvalidID(t *testing.T) {
	mux := newTestMux(&fakeStore{}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLastPageRejected(t *testing.T) {
	f := &fakeStore{
		deletePages: func([]uuid.UUID) error { return store.ErrLastPage },
	}
	mux := newTestMux(f, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/pages/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorderBadPermutation(t *testing.T) {
	f := &fakeStore{
		reorderPages: func([]store.PageMove) error { return store.ErrBadReorder },
	}
	mux := newTestMux(f, nil)

	body := `{"pages":[{"id":"` + uuid.NewString() + `","old_number":1,"new_number":1}]}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pages/reorder", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovePagesToFolder(t *testing.T) {
	pageID := uuid.New()
	folderID := uuid.New()
	f := &fakeStore{
		moveToFolder: func(p store.MovePagesToFolderParams) ([]store.Document, error) {
			assert.Equal(t, []uuid.UUID{pageID}, p.Pages)
			assert.Equal(t, folderID, p.FolderID)
			assert.True(t, p.SinglePage)
			return []store.Document{{ID: uuid.New(), FolderID: folderID, Title: "noname.pdf"}}, nil
		},
	}
	mux := newTestMux(f, nil)

	body := `{"pages":["` + pageID.String() + `"],"dst":"` + folderID.String() + `","single_page":true}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pages/move-to-folder", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var docs []store.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, folderID, docs[0].FolderID)
}

func TestMovePagesToDocumentDefaultsToAppend(t *testing.T) {
	docID := uuid.New()
	f := &fakeStore{
		moveToDocument: func(p store.MovePagesToDocumentParams) error {
			assert.Equal(t, docID, p.DocumentID)
			assert.Equal(t, -1, p.Position, "missing position must append")
			return nil
		},
	}
	mux := newTestMux(f, nil)

	body := `{"pages":["` + uuid.NewString() + `"],"dst":"` + docID.String() + `"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pages/move-to-document", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMovePagesToDocumentIntoSourceRejected(t *testing.T) {
	f := &fakeStore{
		moveToDocument: func(store.MovePagesToDocumentParams) error {
			return store.ErrMoveIntoSource
		},
	}
	mux := newTestMux(f, nil)

	body := `{"pages":["` + uuid.NewString() + `"],"dst":"` + uuid.NewString() + `","position":0}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pages/move-to-document", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovePagesValidation(t *testing.T) {
	f := &fakeStore{
		moveToFolder: func(store.MovePagesToFolderParams) ([]store.Document, error) {
			t.Fatal("store must not be called")
			return nil, nil
		},
		moveToDocument: func(store.MovePagesToDocumentParams) error {
			t.Fatal("store must not be called")
			return nil
		},
	}
	mux := newTestMux(f, nil)

	for name, req := range map[string]*http.Request{
		"folder missing pages": httptest.NewRequest(http.MethodPost, "/pages/move-to-folder",
			strings.NewReader(`{"dst":"`+uuid.NewString()+`"}`)),
		"folder missing dst": httptest.NewRequest(http.MethodPost, "/pages/move-to-folder",
			strings.NewReader(`{"pages":["`+uuid.NewString()+`"]}`)),
		"document missing pages": httptest.NewRequest(http.MethodPost, "/pages/move-to-document",
			strings.NewReader(`{"dst":"`+uuid.NewString()+`"}`)),
		"document missing dst": httptest.NewRequest(http.MethodPost, "/pages/move-to-document",
			strings.NewReader(`{"pages":["`+uuid.NewString()+`"]}`)),
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	called := false
	f := &fakeStore{
		search: func(string) ([]store.SearchResult, error) {
			called = true
			return nil, nil
		},
	}
	mux := newTestMux(f, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestSearchReturnsResults(t *testing.T) {
	f := &fakeStore{
		search: func(q string) ([]store.SearchResult, error) {
			assert.Equal(t, "invoice", q)
			return []store.SearchResult{
				{ID: uuid.New(), Title: "invoice.pdf", NodeType: "document", Breadcrumb: []string{".home", "invoice.pdf"}},
			}, nil
		},
	}
	mux := newTestMux(f, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=invoice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results []store.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "document", results[0].NodeType)
}

func TestGetTaskNotFound(t *testing.T) {
	mux := newTestMux(&fakeStore{}, taskmon.NewMemStore())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTask(t *testing.T) {
	tasks := taskmon.NewMemStore()
	require.NoError(t, tasks.Set(context.Background(), taskmon.Task{
		ID: "t-9", Name: "docshelf.tasks.ingest_document", State: taskmon.StateSucceeded,
	}))
	mux := newTestMux(&fakeStore{}, tasks)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/t-9", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var task taskmon.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, taskmon.StateSucceeded, task.State)
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(&fakeStore{}, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
