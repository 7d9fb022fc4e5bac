package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// How many runes of context a highlight fragment carries around a match, and
// how many fragments a single document contributes at most.
const (
	highlightFragmentSize = 25
	maxHighlights         = 3
)

// Search matches folders by title and documents by title and page text.
// Document text matching is prefix-based so that partially typed words still
// hit. Each document result carries short highlight fragments from the
// matching pages.
func (s *Store) Search(ctx context.Context, query string) ([]SearchResult, error) {
	results := []SearchResult{}

	pattern := "%" + escapeLike(query) + "%"
	tsQuery := prefixQuery(query)

	folderRows, err := s.pool.Query(ctx,
		`SELECT id, title FROM folders WHERE title ILIKE $1 ORDER BY title;`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search folders: %w", err)
	}
	defer folderRows.Close()

	for folderRows.Next() {
		var r SearchResult
		r.NodeType = "folder"
		if err := folderRows.Scan(&r.ID, &r.Title); err != nil {
			return nil, fmt.Errorf("scan folder result: %w", err)
		}
		results = append(results, r)
	}
	if err := folderRows.Err(); err != nil {
		return nil, err
	}

	// to_tsquery rejects an empty query, so the text clause only exists when
	// the query produced usable terms.
	docSQL := `SELECT d.id, d.title, d.folder_id FROM documents d
	           WHERE d.title ILIKE $1 ORDER BY d.title;`
	docArgs := []any{pattern}
	if tsQuery != "" {
		docSQL = `SELECT d.id, d.title, d.folder_id FROM documents d
		          WHERE d.title ILIKE $1
		             OR EXISTS (
		                 SELECT 1 FROM pages p
		                 WHERE p.document_id = d.id
		                   AND to_tsvector('simple', p.text) @@ to_tsquery('simple', $2))
		          ORDER BY d.title;`
		docArgs = append(docArgs, tsQuery)
	}

	docRows, err := s.pool.Query(ctx, docSQL, docArgs...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer docRows.Close()

	type docHit struct {
		result   SearchResult
		folderID uuid.UUID
	}
	var docs []docHit
	for docRows.Next() {
		var hit docHit
		hit.result.NodeType = "document"
		if err := docRows.Scan(&hit.result.ID, &hit.result.Title, &hit.folderID); err != nil {
			return nil, fmt.Errorf("scan document result: %w", err)
		}
		docs = append(docs, hit)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		crumbs, err := s.folderBreadcrumb(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].Breadcrumb = crumbs
	}

	terms := strings.Fields(strings.ToLower(query))
	for _, hit := range docs {
		crumbs, err := s.folderBreadcrumb(ctx, hit.folderID)
		if err != nil {
			return nil, err
		}
		hit.result.Breadcrumb = append(crumbs, hit.result.Title)

		if tsQuery != "" {
			hit.result.Highlight, err = s.pageHighlights(ctx, hit.result.ID, tsQuery, terms)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, hit.result)
	}

	return results, nil
}

func (s *Store) pageHighlights(ctx context.Context, docID uuid.UUID, tsQuery string, terms []string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT text FROM pages
		 WHERE document_id = $1
		   AND to_tsvector('simple', text) @@ to_tsquery('simple', $2)
		 ORDER BY number LIMIT $3;`, docID, tsQuery, maxHighlights)
	if err != nil {
		return nil, fmt.Errorf("load highlight pages: %w", err)
	}
	defer rows.Close()

	var fragments []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan highlight page: %w", err)
		}
		if frag, ok := highlightFragment(text, terms, highlightFragmentSize); ok {
			fragments = append(fragments, frag)
		}
	}
	return fragments, rows.Err()
}

// prefixQuery turns free text into a tsquery where the last word matches by
// prefix: "tax retur" becomes "tax & retur:*". Characters with meaning to
// tsquery are stripped. An empty result disables text matching.
func prefixQuery(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	out := strings.Join(words, " & ")
	return out + ":*"
}

// escapeLike neutralizes LIKE metacharacters in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// highlightFragment cuts a fragment of about 2*size runes around the first
// occurrence of any term. Matching happens rune-by-rune on a per-rune
// lowercased copy: lowercasing can change a rune's byte length (Ⱥ → ⱥ), so
// byte offsets are not transferable between the two strings, but rune offsets
// are.
func highlightFragment(text string, terms []string, size int) (string, bool) {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	at := -1
	for _, term := range terms {
		if term == "" {
			continue
		}
		if i := runeIndex(lower, []rune(term)); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	if at < 0 {
		return "", false
	}

	start := at - size
	if start < 0 {
		start = 0
	}
	end := at + size
	if end > len(runes) {
		end = len(runes)
	}

	frag := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		frag = "..." + frag
	}
	if end < len(runes) {
		frag += "..."
	}
	return frag, true
}

// runeIndex is strings.Index over rune slices.
func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
