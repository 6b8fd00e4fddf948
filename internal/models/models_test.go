package models

import (
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, time.March, 9, 14, 30, 15, 123456789, time.FixedZone("CET", 3600))

func newFixtureStore(t *testing.T) *TaskStore {
	t.Helper()

	store := NewTaskStore()
	if _, err := store.AddTask("Buy milk", TaskOptions{}, fixedNow); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if _, err := store.AddTask("Write report", TaskOptions{Estimate: 2 * time.Hour}, fixedNow); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if _, err := store.AddBag("Work", fixedNow); err != nil {
		t.Fatalf("AddBag() error = %v", err)
	}
	if _, err := store.AddTask("Call Kaylee", TaskOptions{Bag: "work"}, fixedNow); err != nil {
		t.Fatalf("AddTask(bag) error = %v", err)
	}
	if _, err := store.AddTask("Buy milk", TaskOptions{Bag: "Work"}, fixedNow); err != nil {
		t.Fatalf("AddTask(bag) error = %v", err)
	}
	return store
}

func TestAddTaskSetsDefaults(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	task, err := store.AddTask("  Buy milk ", TaskOptions{Notes: "2%"}, fixedNow)
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if task.Title != "Buy milk" {
		t.Fatalf("Title = %q, expected trimmed title", task.Title)
	}
	if !task.DateAdded.Equal(fixedNow.Truncate(time.Second)) || task.DateAdded.Location() != time.UTC {
		t.Fatalf("DateAdded = %v, expected UTC second precision of %v", task.DateAdded, fixedNow)
	}
	if task.Done != 0 || task.HasEstimate() || task.DateLastLogged != nil || task.DateCompleted != nil {
		t.Fatalf("new task has unexpected optional fields: %+v", task)
	}
	if task.ID == "" || len(ShortID(task.ID)) != 8 {
		t.Fatalf("ID = %q, expected a uuid", task.ID)
	}
	if store.Tasks.Len() != 1 {
		t.Fatalf("Tasks.Len() = %d, expected 1", store.Tasks.Len())
	}

	if _, err := store.AddTask("   ", TaskOptions{}, fixedNow); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("AddTask(blank) error = %v, expected ErrEmptyTitle", err)
	}
	if _, err := store.AddTask("x", TaskOptions{Bag: "missing"}, fixedNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AddTask(missing bag) error = %v, expected ErrNotFound", err)
	}
}

func TestAddBagRejectsDuplicates(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)
	if _, err := store.AddBag("WORK", fixedNow); !errors.Is(err, ErrDuplicateBag) {
		t.Fatalf("AddBag(duplicate) error = %v, expected ErrDuplicateBag", err)
	}
	if _, err := store.AddBag("", fixedNow); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("AddBag(empty) error = %v, expected ErrEmptyTitle", err)
	}
}

func TestEntriesOrder(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)
	entries := store.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries() = %d entries, expected 3", len(entries))
	}
	if entries[0].Kind != EntryTask || entries[1].Kind != EntryTask || entries[2].Kind != EntryBag {
		t.Fatalf("Entries() kinds = %v %v %v, expected task task bag", entries[0].Kind, entries[1].Kind, entries[2].Kind)
	}
	if store.TaskCount() != 4 {
		t.Fatalf("TaskCount() = %d, expected 4", store.TaskCount())
	}
	all := store.AllTasks()
	if all[2].Parent == nil || all[2].Parent.Title != "Work" {
		t.Fatalf("AllTasks()[2] parent = %+v, expected Work bag", all[2].Parent)
	}
}

func TestResolveForms(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)
	report := store.Tasks[1]

	cases := []struct {
		ref   string
		title string
		kind  EntryKind
	}{
		{ref: "2", title: "Write report", kind: EntryTask},
		{ref: "write REPORT", title: "Write report", kind: EntryTask},
		{ref: ShortID(report.ID), title: "Write report", kind: EntryTask},
		{ref: "work/1", title: "Call Kaylee", kind: EntryTask},
		{ref: "Work/buy milk", title: "Buy milk", kind: EntryTask},
		{ref: "Call Kaylee", title: "Call Kaylee", kind: EntryTask},
		{ref: "work", title: "Work", kind: EntryBag},
	}
	for _, tc := range cases {
		entry, err := store.Resolve(tc.ref)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tc.ref, err)
		}
		if entry.Title() != tc.title || entry.Kind != tc.kind {
			t.Fatalf("Resolve(%q) = %s, expected %s %q", tc.ref, entry.Label(), tc.kind, tc.title)
		}
	}
}

func TestResolveFailures(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)

	_, err := store.Resolve("buy milk")
	if !errors.Is(err, ErrAmbiguousReference) {
		t.Fatalf("Resolve(duplicate title) error = %v, expected ErrAmbiguousReference", err)
	}
	var ambiguous *AmbiguousError
	if !errors.As(err, &ambiguous) || len(ambiguous.Matches) != 2 {
		t.Fatalf("Resolve(duplicate title) error = %#v, expected 2 matches", err)
	}

	for _, ref := range []string{"", "9", "0", "nothing here", "work/7"} {
		if _, err := store.Resolve(ref); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve(%q) error = %v, expected ErrNotFound", ref, err)
		}
	}
	if _, err := store.ResolveTask("work"); !errors.Is(err, ErrNotATask) {
		t.Fatalf("ResolveTask(bag) error = %v, expected ErrNotATask", err)
	}
}

func TestLogProgressRespectsEstimate(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)
	later := fixedNow.Add(time.Hour)

	task, err := store.LogProgress("Write report", 90*time.Minute, later)
	if err != nil {
		t.Fatalf("LogProgress() error = %v", err)
	}
	if task.Done != 90*time.Minute {
		t.Fatalf("Done = %s, expected 1h30m", task.Done)
	}
	if task.DateLastLogged == nil || !task.DateLastLogged.Equal(later.Truncate(time.Second)) {
		t.Fatalf("DateLastLogged = %v, expected %v", task.DateLastLogged, later)
	}
	if task.Remaining() != 30*time.Minute {
		t.Fatalf("Remaining() = %s, expected 30m", task.Remaining())
	}

	if _, err := store.LogProgress("Write report", time.Hour, later); !errors.Is(err, ErrOverEstimate) {
		t.Fatalf("LogProgress(over) error = %v, expected ErrOverEstimate", err)
	}
	if store.Tasks[1].Done != 90*time.Minute {
		t.Fatalf("Done changed after rejected log: %s", store.Tasks[1].Done)
	}
	if _, err := store.LogProgress("Write report", 0, later); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("LogProgress(0) error = %v, expected ErrInvalidDuration", err)
	}
	if _, err := store.LogProgress("1", 10*time.Hour, later); err != nil {
		t.Fatalf("LogProgress(no estimate) error = %v", err)
	}
}

func TestCompleteAndRecurring(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	if _, err := store.AddTask("Water plants", TaskOptions{Recurring: RecurWeekly}, fixedNow); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if _, err := store.AddTask("File taxes", TaskOptions{}, fixedNow); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	if _, err := store.LogProgress("1", 10*time.Minute, fixedNow); err != nil {
		t.Fatalf("LogProgress() error = %v", err)
	}

	plants, err := store.Complete("1", fixedNow)
	if err != nil {
		t.Fatalf("Complete(recurring) error = %v", err)
	}
	if plants.IsComplete() || plants.Done != 0 || plants.DateCompleted == nil {
		t.Fatalf("recurring task after Complete() = %+v, expected open with reset Done", plants)
	}
	if _, err := store.Complete("1", fixedNow); err != nil {
		t.Fatalf("Complete(recurring twice) error = %v", err)
	}

	taxes, err := store.Complete("File taxes", fixedNow)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !taxes.IsComplete() {
		t.Fatalf("IsComplete() = false after Complete()")
	}
	if _, err := store.Complete("File taxes", fixedNow); !errors.Is(err, ErrAlreadyComplete) {
		t.Fatalf("Complete(twice) error = %v, expected ErrAlreadyComplete", err)
	}
	if _, err := store.LogProgress("File taxes", time.Minute, fixedNow); !errors.Is(err, ErrAlreadyComplete) {
		t.Fatalf("LogProgress(complete) error = %v, expected ErrAlreadyComplete", err)
	}
}

func TestSetEstimate(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)
	if _, err := store.LogProgress("1", time.Hour, fixedNow); err != nil {
		t.Fatalf("LogProgress() error = %v", err)
	}
	if _, err := store.SetEstimate("1", 30*time.Minute); !errors.Is(err, ErrOverEstimate) {
		t.Fatalf("SetEstimate(below done) error = %v, expected ErrOverEstimate", err)
	}
	task, err := store.SetEstimate("1", 3*time.Hour)
	if err != nil {
		t.Fatalf("SetEstimate() error = %v", err)
	}
	if task.Estimate != 3*time.Hour {
		t.Fatalf("Estimate = %s, expected 3h", task.Estimate)
	}
	if _, err := store.SetEstimate("1", 0); err != nil {
		t.Fatalf("SetEstimate(clear) error = %v", err)
	}
	if store.Tasks[0].HasEstimate() {
		t.Fatalf("HasEstimate() = true after clearing")
	}
}

func TestRemoveTaskAndBag(t *testing.T) {
	t.Parallel()

	store := newFixtureStore(t)

	removed, err := store.Remove("work/Call Kaylee")
	if err != nil {
		t.Fatalf("Remove(task in bag) error = %v", err)
	}
	if removed.Kind != EntryTask || removed.Title() != "Call Kaylee" {
		t.Fatalf("Remove() = %s, expected Call Kaylee", removed.Label())
	}
	bag, _ := store.Bag("work")
	if bag.Tasks.Len() != 1 {
		t.Fatalf("bag has %d tasks, expected 1", bag.Tasks.Len())
	}

	if _, err := store.Remove("1"); err != nil {
		t.Fatalf("Remove(top-level) error = %v", err)
	}
	if store.Tasks.Len() != 1 || store.Tasks[0].Title != "Write report" {
		t.Fatalf("Tasks after remove = %+v", store.Tasks)
	}

	removed, err = store.Remove("work")
	if err != nil {
		t.Fatalf("Remove(bag) error = %v", err)
	}
	if removed.Kind != EntryBag || removed.Bag.Tasks.Len() != 1 {
		t.Fatalf("Remove(bag) = %+v", removed)
	}
	if len(store.Bags) != 0 {
		t.Fatalf("Bags = %d after removing the only bag", len(store.Bags))
	}
}

func TestParseRecurrence(t *testing.T) {
	t.Parallel()

	cases := map[string]Recurrence{
		"":         RecurNone,
		"Daily":    RecurDaily,
		"weekdays": RecurWeekdays,
		"week":     RecurWeekly,
		"monthly":  RecurMonthly,
		"annually": RecurYearly,
	}
	for input, expected := range cases {
		got, err := ParseRecurrence(input)
		if err != nil || got != expected {
			t.Fatalf("ParseRecurrence(%q) = %q, %v, expected %q", input, got, err, expected)
		}
	}
	if _, err := ParseRecurrence("fortnightly"); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("ParseRecurrence(invalid) error = %v, expected ErrInvalidRecurrence", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	task := Task{Title: "x", Estimate: time.Hour, Done: 2 * time.Hour}
	if err := task.Validate(); !errors.Is(err, ErrOverEstimate) {
		t.Fatalf("Validate() error = %v, expected ErrOverEstimate", err)
	}
	task = Task{Title: " "}
	if err := task.Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("Validate() error = %v, expected ErrEmptyTitle", err)
	}
	task = Task{Title: "ok", Done: time.Hour}
	if err := task.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestResolveTitlesThatLookLikeNumbersOrIDs(t *testing.T) {
	t.Parallel()

	store := NewTaskStore()
	for _, title := range []string{"Buy milk", "2026", "cafe"} {
		if _, err := store.AddTask(title, TaskOptions{}, fixedNow); err != nil {
			t.Fatalf("AddTask(%q) error = %v", title, err)
		}
	}
	bag, err := store.AddBag("Work", fixedNow)
	if err != nil {
		t.Fatalf("AddBag() error = %v", err)
	}
	if _, err := bag.AddTask("42", TaskOptions{}, fixedNow); err != nil {
		t.Fatalf("Bag.AddTask() error = %v", err)
	}
	// Force an id whose prefix collides with the "cafe" title.
	store.Tasks[0].ID = "cafe0000-0000-4000-8000-000000000000"

	cases := []struct {
		ref   string
		title string
	}{
		{ref: "2", title: "2026"},
		{ref: "2026", title: "2026"},
		{ref: "cafe", title: "cafe"},
		{ref: "CAFE0000", title: "Buy milk"},
		{ref: "Work/42", title: "42"},
		{ref: "work/1", title: "42"},
	}
	for _, tc := range cases {
		entry, err := store.Resolve(tc.ref)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tc.ref, err)
		}
		if entry.Title() != tc.title {
			t.Fatalf("Resolve(%q) = %q, expected %q", tc.ref, entry.Title(), tc.title)
		}
	}
	if _, err := store.Resolve("9999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve(9999) error = %v, expected ErrNotFound", err)
	}
}
