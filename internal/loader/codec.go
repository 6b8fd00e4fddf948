package loader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/kaban-cli/kaban/internal/config"
	"github.com/kaban-cli/kaban/internal/models"
)

const dataHeader = "# kaban task data, edit at your own risk\n"

var (
	ErrMissingTitle     = errors.New("missing title")
	ErrMissingDateAdded = errors.New("missing date_added")
	ErrBadField         = errors.New("invalid field value")
)

// ParseError means the data file could not be parsed at all.
type ParseError struct {
	Path   string
	Format config.Format
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "task data"
	}
	return fmt.Sprintf("failed to parse %s as %s: %v", where, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EntryError describes one entry skipped (or kept with a warning) while
// decoding. Where is a path such as "bags[1].tasks[0]".
type EntryError struct {
	Where string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Where, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Document is the result of decoding a data file. Diagnostics collects
// every EntryError; it is nil when the file was clean.
type Document struct {
	Store       *models.TaskStore
	Diagnostics error
}

type storeRecord struct {
	Tasks []taskRecord `toml:"tasks" yaml:"tasks"`
	Bags  []bagRecord  `toml:"bags" yaml:"bags"`
}

type taskRecord struct {
	ID             string     `toml:"id" yaml:"id"`
	Title          string     `toml:"title" yaml:"title"`
	DateAdded      *time.Time `toml:"date_added,omitempty" yaml:"date_added,omitempty"`
	DateLastLogged *time.Time `toml:"date_last_logged,omitempty" yaml:"date_last_logged,omitempty"`
	DateCompleted  *time.Time `toml:"date_completed,omitempty" yaml:"date_completed,omitempty"`
	Recurring      string     `toml:"recurring,omitempty" yaml:"recurring,omitempty"`
	Notes          string     `toml:"notes,omitempty" yaml:"notes,omitempty"`
	Estimate       string     `toml:"estimate,omitempty" yaml:"estimate,omitempty"`
	Done           string     `toml:"done,omitempty" yaml:"done,omitempty"`
}

type bagRecord struct {
	ID        string       `toml:"id" yaml:"id"`
	Title     string       `toml:"title" yaml:"title"`
	DateAdded *time.Time   `toml:"date_added,omitempty" yaml:"date_added,omitempty"`
	Notes     string       `toml:"notes,omitempty" yaml:"notes,omitempty"`
	Tasks     []taskRecord `toml:"tasks" yaml:"tasks"`
}

// Decode parses raw in the given format. Top-level tasks are populated
// before bags. Entries that cannot be represented are skipped and reported
// through Document.Diagnostics; only a syntax error fails the decode.
func Decode(raw []byte, format config.Format) (Document, error) {
	var record storeRecord
	var diagnostics error

	switch format {
	case config.FormatYAML:
		if err := yaml.Unmarshal(raw, &record); err != nil {
			return Document{}, &ParseError{Format: format, Err: err}
		}
	case config.FormatTOML:
		meta, err := toml.Decode(string(raw), &record)
		if err != nil {
			return Document{}, &ParseError{Format: format, Err: err}
		}
		for _, key := range meta.Undecoded() {
			diagnostics = multierr.Append(diagnostics, &EntryError{
				Where: key.String(),
				Err:   errors.New("unknown key ignored"),
			})
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}

	store := models.NewTaskStore()
	for i, rec := range record.Tasks {
		task, err := rec.toTask(fmt.Sprintf("tasks[%d]", i))
		diagnostics = multierr.Append(diagnostics, err)
		if task != nil {
			store.Tasks.Append(*task)
		}
	}
	for i, rec := range record.Bags {
		where := fmt.Sprintf("bags[%d]", i)
		if strings.TrimSpace(rec.Title) == "" {
			diagnostics = multierr.Append(diagnostics, &EntryError{Where: where, Err: ErrMissingTitle})
			continue
		}
		if rec.DateAdded == nil {
			diagnostics = multierr.Append(diagnostics, &EntryError{Where: where, Err: ErrMissingDateAdded})
			continue
		}
		bag := models.Bag{
			ID:        orNewID(rec.ID),
			Title:     rec.Title,
			DateAdded: models.Timestamp(*rec.DateAdded),
			Notes:     rec.Notes,
		}
		for j, taskRec := range rec.Tasks {
			task, err := taskRec.toTask(fmt.Sprintf("%s.tasks[%d]", where, j))
			diagnostics = multierr.Append(diagnostics, err)
			if task != nil {
				bag.Tasks.Append(*task)
			}
		}
		store.Bags = append(store.Bags, bag)
	}

	return Document{Store: store, Diagnostics: diagnostics}, nil
}

// toTask converts a record. A nil task means the entry was skipped; a
// non-nil task with an error means it was kept with a warning.
func (r taskRecord) toTask(where string) (*models.Task, error) {
	if strings.TrimSpace(r.Title) == "" {
		return nil, &EntryError{Where: where, Err: ErrMissingTitle}
	}
	recurring, err := models.ParseRecurrence(r.Recurring)
	if err != nil {
		return nil, &EntryError{Where: where, Err: fmt.Errorf("%w: %v", ErrBadField, err)}
	}
	estimate, err := parseDuration(r.Estimate)
	if err != nil {
		return nil, &EntryError{Where: where, Err: fmt.Errorf("%w: estimate: %v", ErrBadField, err)}
	}
	done, err := parseDuration(r.Done)
	if err != nil {
		return nil, &EntryError{Where: where, Err: fmt.Errorf("%w: done: %v", ErrBadField, err)}
	}

	task := &models.Task{
		ID:             orNewID(r.ID),
		Title:          r.Title,
		DateLastLogged: timestampPtr(r.DateLastLogged),
		DateCompleted:  timestampPtr(r.DateCompleted),
		Recurring:      recurring,
		Notes:          r.Notes,
		Estimate:       estimate,
		Done:           done,
	}
	if r.DateAdded != nil {
		task.DateAdded = models.Timestamp(*r.DateAdded)
	}
	if err := task.Validate(); err != nil {
		return task, &EntryError{Where: where, Err: err}
	}
	return task, nil
}

// Encode renders store in the given format, preceded by a fresh header
// comment. Output is deterministic for a given store.
func Encode(store *models.TaskStore, format config.Format) ([]byte, error) {
	record := storeRecord{
		Tasks: make([]taskRecord, 0, len(store.Tasks)),
		Bags:  make([]bagRecord, 0, len(store.Bags)),
	}
	for i := range store.Tasks {
		record.Tasks = append(record.Tasks, fromTask(&store.Tasks[i]))
	}
	for i := range store.Bags {
		bag := &store.Bags[i]
		added := bag.DateAdded
		rec := bagRecord{
			ID:        bag.ID,
			Title:     bag.Title,
			DateAdded: &added,
			Notes:     bag.Notes,
			Tasks:     make([]taskRecord, 0, len(bag.Tasks)),
		}
		for j := range bag.Tasks {
			rec.Tasks = append(rec.Tasks, fromTask(&bag.Tasks[j]))
		}
		record.Bags = append(record.Bags, rec)
	}

	var buf bytes.Buffer
	buf.WriteString(dataHeader)
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(record); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
	case config.FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(record); err != nil {
			return nil, fmt.Errorf("failed to encode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidFormat, format)
	}
	return buf.Bytes(), nil
}

func fromTask(task *models.Task) taskRecord {
	rec := taskRecord{
		ID:             task.ID,
		Title:          task.Title,
		DateLastLogged: task.DateLastLogged,
		DateCompleted:  task.DateCompleted,
		Recurring:      string(task.Recurring),
		Notes:          task.Notes,
	}
	if !task.DateAdded.IsZero() {
		added := task.DateAdded
		rec.DateAdded = &added
	}
	if task.Estimate > 0 {
		rec.Estimate = task.Estimate.String()
	}
	if task.Done > 0 {
		rec.Done = task.Done.String()
	}
	return rec
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, models.ErrInvalidDuration
	}
	return d, nil
}

func timestampPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := models.Timestamp(*t)
	return &normalized
}

func orNewID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return models.NewID()
}
