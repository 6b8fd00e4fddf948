package models

import (
	"fmt"
	"strconv"
	"strings"
)

const minIDPrefix = 4

// AmbiguousError reports every entry a reference matched.
type AmbiguousError struct {
	Ref     string
	Matches []Entry
}

func (e *AmbiguousError) Error() string {
	ids := make([]string, 0, len(e.Matches))
	for _, match := range e.Matches {
		ids = append(ids, ShortID(match.ID()))
	}
	return fmt.Sprintf("%q matches %d entries (%s)", e.Ref, len(e.Matches), strings.Join(ids, ", "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguousReference
}

// Resolve finds the task or bag named by ref. Accepted forms, tried in
// order:
//
//	3          third top-level task
//	work/2     second task in bag "work" (bag by title or id prefix)
//	work/Call  task titled "Call" inside bag "work"
//	Buy milk   exact title of a task or bag, ignoring case
//	1a2b3c4d   id prefix of a task or bag (at least 4 characters)
//
// A number with no task at that position is tried as a title. Exact
// titles win over id prefixes, so a task called "cafe" stays reachable.
// Titles are not unique, so a reference matching several entries fails
// with ErrAmbiguousReference instead of picking one.
func (s *TaskStore) Resolve(ref string) (Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Entry{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	var positionErr error
	if position, err := strconv.Atoi(ref); err == nil {
		if task, ok := s.Tasks.At(position); ok {
			return taskEntry(task, nil), nil
		}
		positionErr = fmt.Errorf("%w: no top-level task at position %d", ErrNotFound, position)
	}
	if slash := strings.LastIndex(ref, "/"); slash > 0 && slash < len(ref)-1 {
		if entry, handled, err := s.resolveInBag(ref, ref[:slash], ref[slash+1:]); handled {
			return entry, err
		}
	}

	var titles, ids []Entry
	for _, entry := range s.AllTasks() {
		titles, ids = classify(titles, ids, entry, ref)
	}
	for i := range s.Bags {
		titles, ids = classify(titles, ids, bagEntry(&s.Bags[i]), ref)
	}
	if len(titles) == 0 && len(ids) == 0 && positionErr != nil {
		return Entry{}, positionErr
	}
	if len(titles) > 0 {
		return pick(ref, titles)
	}
	return pick(ref, ids)
}

func (s *TaskStore) resolveInBag(ref, bagRef, taskRef string) (Entry, bool, error) {
	var bags []*Bag
	for i := range s.Bags {
		if strings.EqualFold(s.Bags[i].Title, bagRef) {
			bags = append(bags, &s.Bags[i])
		}
	}
	if len(bags) == 0 {
		for i := range s.Bags {
			if matchesID(s.Bags[i].ID, bagRef) {
				bags = append(bags, &s.Bags[i])
			}
		}
	}
	switch len(bags) {
	case 0:
		// Not a bag path; the slash may be part of a title.
		return Entry{}, false, nil
	case 1:
	default:
		entries := make([]Entry, 0, len(bags))
		for _, bag := range bags {
			entries = append(entries, bagEntry(bag))
		}
		return Entry{}, true, &AmbiguousError{Ref: bagRef, Matches: entries}
	}

	bag := bags[0]
	var positionErr error
	if position, err := strconv.Atoi(taskRef); err == nil {
		if task, ok := bag.Tasks.At(position); ok {
			return taskEntry(task, bag), true, nil
		}
		positionErr = fmt.Errorf("%w: bag %q has no task at position %d", ErrNotFound, bag.Title, position)
	}
	var titles, ids []Entry
	for i := range bag.Tasks {
		titles, ids = classify(titles, ids, taskEntry(&bag.Tasks[i], bag), taskRef)
	}
	if len(titles) == 0 && len(ids) == 0 && positionErr != nil {
		return Entry{}, true, positionErr
	}
	if len(titles) > 0 {
		entry, err := pick(ref, titles)
		return entry, true, err
	}
	entry, err := pick(ref, ids)
	return entry, true, err
}

// classify appends entry to titles when its title equals ref, or to ids
// when ref is a prefix of its id.
func classify(titles, ids []Entry, entry Entry, ref string) ([]Entry, []Entry) {
	switch {
	case strings.EqualFold(entry.Title(), ref):
		titles = append(titles, entry)
	case matchesID(entry.ID(), ref):
		ids = append(ids, entry)
	}
	return titles, ids
}

func pick(ref string, matches []Entry) (Entry, error) {
	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, &AmbiguousError{Ref: ref, Matches: matches}
	}
}

func matchesID(id, ref string) bool {
	return len(ref) >= minIDPrefix && looksLikeID(ref) && strings.HasPrefix(id, strings.ToLower(ref))
}

func looksLikeID(value string) bool {
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F', r == '-':
		default:
			return false
		}
	}
	return true
}
