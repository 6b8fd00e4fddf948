package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrNotFound           = errors.New("no matching task or bag")
	ErrAmbiguousReference = errors.New("reference matches more than one entry")
	ErrNotATask           = errors.New("reference names a bag, not a task")
	ErrOverEstimate       = errors.New("time done would exceed the estimate")
	ErrAlreadyComplete    = errors.New("task is already complete")
	ErrDuplicateBag       = errors.New("a bag with that title already exists")
	ErrInvalidDuration    = errors.New("duration must be positive")
	ErrInvalidRecurrence  = errors.New("unknown recurrence")
)

type Recurrence string

const (
	RecurNone     Recurrence = ""
	RecurDaily    Recurrence = "daily"
	RecurWeekdays Recurrence = "weekdays"
	RecurWeekly   Recurrence = "weekly"
	RecurMonthly  Recurrence = "monthly"
	RecurYearly   Recurrence = "yearly"
)

// ParseRecurrence normalizes a recurrence descriptor. An empty value means
// the task does not recur.
func ParseRecurrence(value string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return RecurNone, nil
	case "daily", "day":
		return RecurDaily, nil
	case "weekdays", "weekday", "workdays":
		return RecurWeekdays, nil
	case "weekly", "week":
		return RecurWeekly, nil
	case "monthly", "month":
		return RecurMonthly, nil
	case "yearly", "year", "annually":
		return RecurYearly, nil
	default:
		return RecurNone, fmt.Errorf("%w: %s", ErrInvalidRecurrence, value)
	}
}

// Task is a single trackable unit of work. Estimate is unset when zero.
type Task struct {
	ID             string
	Title          string
	DateAdded      time.Time
	DateLastLogged *time.Time
	DateCompleted  *time.Time
	Recurring      Recurrence
	Notes          string
	Estimate       time.Duration
	Done           time.Duration
}

// TaskOptions carries the optional fields accepted when adding a task.
type TaskOptions struct {
	Bag       string
	Notes     string
	Estimate  time.Duration
	Recurring Recurrence
}

func newTask(title string, opts TaskOptions, now time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	if opts.Estimate < 0 {
		return Task{}, ErrInvalidDuration
	}
	return Task{
		ID:        NewID(),
		Title:     title,
		DateAdded: Timestamp(now),
		Recurring: opts.Recurring,
		Notes:     opts.Notes,
		Estimate:  opts.Estimate,
	}, nil
}

// NewID returns a fresh identifier for a task or bag.
func NewID() string {
	return uuid.NewString()
}

// Timestamp normalizes t the way it is stored on disk.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ShortID is the prefix of an ID shown to users.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func (t *Task) HasEstimate() bool {
	return t.Estimate > 0
}

// IsComplete reports whether the task is finished. Recurring tasks never
// finish; completing one only records the date and resets Done.
func (t *Task) IsComplete() bool {
	return t.DateCompleted != nil && t.Recurring == RecurNone
}

// Remaining is the estimate minus the time done, or zero without an estimate.
func (t *Task) Remaining() time.Duration {
	if !t.HasEstimate() || t.Done >= t.Estimate {
		return 0
	}
	return t.Estimate - t.Done
}

// Validate checks the invariants a loaded task must satisfy.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Done < 0 || t.Estimate < 0 {
		return ErrInvalidDuration
	}
	if t.HasEstimate() && t.Done > t.Estimate {
		return fmt.Errorf("%w: done %s, estimate %s", ErrOverEstimate, t.Done, t.Estimate)
	}
	return nil
}

func (t *Task) logProgress(d time.Duration, now time.Time) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	if t.IsComplete() {
		return ErrAlreadyComplete
	}
	if t.HasEstimate() && t.Done+d > t.Estimate {
		return fmt.Errorf("%w: %s left of %s", ErrOverEstimate, t.Remaining(), t.Estimate)
	}
	t.Done += d
	logged := Timestamp(now)
	t.DateLastLogged = &logged
	return nil
}

func (t *Task) complete(now time.Time) error {
	if t.IsComplete() {
		return ErrAlreadyComplete
	}
	completed := Timestamp(now)
	t.DateCompleted = &completed
	if t.Recurring != RecurNone {
		t.Done = 0
	}
	return nil
}

func (t *Task) setEstimate(d time.Duration) error {
	if d < 0 {
		return ErrInvalidDuration
	}
	if d > 0 && d < t.Done {
		return fmt.Errorf("%w: %s already done", ErrOverEstimate, t.Done)
	}
	t.Estimate = d
	return nil
}

// TaskList is an ordered collection of tasks. Both the store's top level
// and every bag hold one.
type TaskList []Task

func (l *TaskList) Append(task Task) *Task {
	*l = append(*l, task)
	return &(*l)[len(*l)-1]
}

func (l TaskList) Len() int {
	return len(l)
}

// At returns the task at the 1-based position, if any.
func (l TaskList) At(position int) (*Task, bool) {
	if position < 1 || position > len(l) {
		return nil, false
	}
	return &l[position-1], true
}

func (l *TaskList) removeAt(index int) Task {
	removed := (*l)[index]
	*l = append((*l)[:index], (*l)[index+1:]...)
	return removed
}

func (l TaskList) indexOf(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Bag is a named, ordered group of tasks with task-like metadata.
type Bag struct {
	ID        string
	Title     string
	DateAdded time.Time
	Notes     string
	Tasks     TaskList
}

// AddTask appends a new task to the bag.
func (b *Bag) AddTask(title string, opts TaskOptions, now time.Time) (*Task, error) {
	task, err := newTask(title, opts, now)
	if err != nil {
		return nil, err
	}
	return b.Tasks.Append(task), nil
}

// Done counts completed tasks in the bag.
func (b *Bag) Done() int {
	count := 0
	for i := range b.Tasks {
		if b.Tasks[i].IsComplete() {
			count++
		}
	}
	return count
}

type EntryKind int

const (
	EntryTask EntryKind = iota
	EntryBag
)

func (k EntryKind) String() string {
	if k == EntryBag {
		return "bag"
	}
	return "task"
}

// Entry is either a task (with the bag holding it, if any) or a bag.
type Entry struct {
	Kind   EntryKind
	Task   *Task
	Bag    *Bag
	Parent *Bag
}

func (e Entry) ID() string {
	if e.Kind == EntryBag {
		return e.Bag.ID
	}
	return e.Task.ID
}

func (e Entry) Title() string {
	if e.Kind == EntryBag {
		return e.Bag.Title
	}
	return e.Task.Title
}

// Label renders the entry for messages, e.g. `task "Buy milk" (1a2b3c4d)`.
func (e Entry) Label() string {
	return fmt.Sprintf("%s %q (%s)", e.Kind, e.Title(), ShortID(e.ID()))
}

func taskEntry(task *Task, parent *Bag) Entry {
	return Entry{Kind: EntryTask, Task: task, Parent: parent}
}

func bagEntry(bag *Bag) Entry {
	return Entry{Kind: EntryBag, Bag: bag}
}

// TaskStore is the document root: top-level tasks followed by bags.
type TaskStore struct {
	Tasks TaskList
	Bags  []Bag
}

func NewTaskStore() *TaskStore {
	return &TaskStore{}
}

// AddTask appends a task at the top level, or to the bag named in opts.
func (s *TaskStore) AddTask(title string, opts TaskOptions, now time.Time) (*Task, error) {
	if opts.Bag != "" {
		bag, ok := s.Bag(opts.Bag)
		if !ok {
			return nil, fmt.Errorf("%w: bag %q", ErrNotFound, opts.Bag)
		}
		return bag.AddTask(title, opts, now)
	}
	task, err := newTask(title, opts, now)
	if err != nil {
		return nil, err
	}
	return s.Tasks.Append(task), nil
}

// AddBag appends an empty bag. Bag titles are unique, ignoring case.
func (s *TaskStore) AddBag(title string, now time.Time) (*Bag, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if _, exists := s.Bag(title); exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateBag, title)
	}
	s.Bags = append(s.Bags, Bag{
		ID:        NewID(),
		Title:     title,
		DateAdded: Timestamp(now),
	})
	return &s.Bags[len(s.Bags)-1], nil
}

// Bag looks a bag up by title, ignoring case.
func (s *TaskStore) Bag(title string) (*Bag, bool) {
	for i := range s.Bags {
		if strings.EqualFold(s.Bags[i].Title, strings.TrimSpace(title)) {
			return &s.Bags[i], true
		}
	}
	return nil, false
}

// Entries lists top-level tasks, then bags, in stored order.
func (s *TaskStore) Entries() []Entry {
	out := make([]Entry, 0, len(s.Tasks)+len(s.Bags))
	for i := range s.Tasks {
		out = append(out, taskEntry(&s.Tasks[i], nil))
	}
	for i := range s.Bags {
		out = append(out, bagEntry(&s.Bags[i]))
	}
	return out
}

// AllTasks lists every task, top-level first, then bag by bag.
func (s *TaskStore) AllTasks() []Entry {
	out := make([]Entry, 0, s.TaskCount())
	for i := range s.Tasks {
		out = append(out, taskEntry(&s.Tasks[i], nil))
	}
	for i := range s.Bags {
		bag := &s.Bags[i]
		for j := range bag.Tasks {
			out = append(out, taskEntry(&bag.Tasks[j], bag))
		}
	}
	return out
}

func (s *TaskStore) TaskCount() int {
	count := len(s.Tasks)
	for i := range s.Bags {
		count += len(s.Bags[i].Tasks)
	}
	return count
}

func (s *TaskStore) IsEmpty() bool {
	return len(s.Tasks) == 0 && len(s.Bags) == 0
}

// ResolveTask resolves ref and requires the result to be a task.
func (s *TaskStore) ResolveTask(ref string) (Entry, error) {
	entry, err := s.Resolve(ref)
	if err != nil {
		return Entry{}, err
	}
	if entry.Kind != EntryTask {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotATask, entry.Label())
	}
	return entry, nil
}

// LogProgress adds d to the time done on the referenced task.
func (s *TaskStore) LogProgress(ref string, d time.Duration, now time.Time) (*Task, error) {
	entry, err := s.ResolveTask(ref)
	if err != nil {
		return nil, err
	}
	if err := entry.Task.logProgress(d, now); err != nil {
		return nil, err
	}
	return entry.Task, nil
}

// Complete marks the referenced task done.
func (s *TaskStore) Complete(ref string, now time.Time) (*Task, error) {
	entry, err := s.ResolveTask(ref)
	if err != nil {
		return nil, err
	}
	if err := entry.Task.complete(now); err != nil {
		return nil, err
	}
	return entry.Task, nil
}

// SetEstimate replaces the estimate on the referenced task. Zero clears it.
func (s *TaskStore) SetEstimate(ref string, d time.Duration) (*Task, error) {
	entry, err := s.ResolveTask(ref)
	if err != nil {
		return nil, err
	}
	if err := entry.Task.setEstimate(d); err != nil {
		return nil, err
	}
	return entry.Task, nil
}

// Remove deletes the referenced task, or the referenced bag with all of
// its tasks. The returned entry points at a copy of what was removed.
func (s *TaskStore) Remove(ref string) (Entry, error) {
	entry, err := s.Resolve(ref)
	if err != nil {
		return Entry{}, err
	}
	if entry.Kind == EntryBag {
		for i := range s.Bags {
			if s.Bags[i].ID == entry.Bag.ID {
				removed := s.Bags[i]
				s.Bags = append(s.Bags[:i], s.Bags[i+1:]...)
				return bagEntry(&removed), nil
			}
		}
		return Entry{}, ErrNotFound
	}
	list := &s.Tasks
	if entry.Parent != nil {
		list = &entry.Parent.Tasks
	}
	index := list.indexOf(entry.Task.ID)
	if index < 0 {
		return Entry{}, ErrNotFound
	}
	removed := list.removeAt(index)
	return taskEntry(&removed, entry.Parent), nil
}
