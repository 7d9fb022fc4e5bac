// Package event defines the task events that travel from the outbox table,
// through the relay, to the worker. The outbox row's event_name column doubles
// as the NATS subject.
package event

const (
	// SubjectPrefix is the subject space the worker subscribes to.
	SubjectPrefix = "docshelf.tasks."

	// IngestDocument asks the worker to split submitted content into pages
	// and index them.
	IngestDocument = SubjectPrefix + "ingest_document"
)

// DocumentIngest is the payload stored in the outbox row's data column for
// IngestDocument events.
type DocumentIngest struct {
	TaskID     string `json:"task_id"`
	DocumentID string `json:"document_id"`
	Lang       string `json:"lang"`
	Content    string `json:"content"`
}

// ShortName returns the last dot-separated segment of an event name, e.g.
// "ingest_document" for IngestDocument. Used in task-monitor entries and logs.
func ShortName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
