package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kaban-cli/kaban/internal/commands"
	"github.com/kaban-cli/kaban/internal/config"
	"github.com/kaban-cli/kaban/internal/credentials"
	"github.com/kaban-cli/kaban/internal/guard"
	"github.com/kaban-cli/kaban/internal/models"
)

func runInit(r *Runner, inv *invocation) error {
	env := inv.env
	if env.DataFileExists() && (env.LocalMode() || env.RepoExists()) {
		r.say("Relax, you already have a kaban repo at '%s'.\n", env.Paths.Dir)
		return nil
	}
	if _, err := env.Initialize(); err != nil {
		return err
	}
	if inv.flags.local {
		if err := env.UpdateSettings(func(s *config.Settings) error {
			s.Local = true
			return nil
		}); err != nil {
			return err
		}
	}
	inv.commitMessage = "Init kaban repo"

	r.say("%s\n", r.style.Success(fmt.Sprintf("New kaban repo founded at '%s'. Let's do this!", env.Paths.Dir)))
	if env.LocalMode() {
		r.say("%s\n", r.style.Muted("Just a heads up: this repo will not be synced anywhere until you run `kaban config local false`."))
	} else {
		r.say("%s\n", r.style.Muted("(Don't forget to run `kaban remote URL` to enable syncing.)"))
	}
	return nil
}

func runHelp(r *Runner, inv *invocation) error {
	if inv.object == "" {
		r.printGeneralHelp()
		return nil
	}
	topic, _ := commands.Resolve(normalizeCommand(inv.object))
	if commands.IsReserved(topic) {
		topic = commands.CmdConfig
	}
	if _, ok := commandTable[topic]; !ok {
		r.printf("%s\n", r.style.Error(fmt.Sprintf("Not sure what you mean by '%s'.", inv.object)))
		r.printf("%s\n", r.style.Muted("Check out `kaban help` for a list of commands."))
		return fmt.Errorf("%w: %s", guard.ErrUnexpectedObject, inv.object)
	}
	r.printUsageForCommand(topic)
	return nil
}

func runVersion(r *Runner, _ *invocation) error {
	r.printf("%s version %s\n", r.style.Success(r.root.Name()), r.root.Version())
	return nil
}

func runConfig(r *Runner, inv *invocation) error {
	env := inv.env
	if inv.object == "" {
		for _, key := range config.SettingKeys() {
			value, _ := env.Settings.Get(key)
			r.printf("%s = %s\n", r.style.SubHeader(key), value)
		}
		return nil
	}
	value, ok := inv.value(0)
	if !ok {
		current, err := env.Settings.Get(inv.object)
		if err != nil {
			return err
		}
		r.printf("%s\n", current)
		return nil
	}
	if err := env.UpdateSettings(func(s *config.Settings) error {
		return s.Set(inv.object, value)
	}); err != nil {
		return err
	}
	updated, _ := env.Settings.Get(inv.object)
	inv.commitMessage = fmt.Sprintf("Set %s to %s", strings.ToLower(inv.object), updated)
	r.say("%s\n", r.style.Success(fmt.Sprintf("Config %s set to %s.", strings.ToLower(inv.object), updated)))
	return nil
}

func runRemote(r *Runner, inv *invocation) error {
	env := inv.env
	if inv.object == "" {
		url, ok := env.RemoteURL()
		if !ok {
			return guard.ErrNoRemoteURL
		}
		r.printf("%s\n", credentials.Redact(url))
		return nil
	}
	if err := env.SetRemoteURL(inv.object); err != nil {
		return err
	}
	r.say("%s\n", r.style.Success(fmt.Sprintf("Remote URL set to '%s'.", credentials.Redact(inv.object))))
	return nil
}

func runUser(r *Runner, inv *invocation) error {
	env := inv.env
	url, _ := env.RemoteURL()
	if inv.object == "" {
		creds, ok := credentials.Decode(url)
		if !ok {
			return fmt.Errorf("%w: no username set", guard.ErrNoCredentials)
		}
		r.printf("%s\n", creds.Username)
		return nil
	}
	updated, err := credentials.EncodeUsername(url, inv.object)
	if err != nil {
		return err
	}
	if err := env.SetRemoteURL(updated); err != nil {
		return err
	}
	r.say("%s\n", r.style.Success(fmt.Sprintf("Username set to '%s'.", inv.object)))
	return nil
}

func runToken(r *Runner, inv *invocation) error {
	env := inv.env
	url, _ := env.RemoteURL()
	if inv.object == "" {
		creds, ok := credentials.Decode(url)
		if !ok || !creds.HasToken() {
			return fmt.Errorf("%w: no token set", guard.ErrNoCredentials)
		}
		r.printf("A token is set for %s.\n", creds.Username)
		return nil
	}
	if !credentials.TokenLooksValid(inv.object) {
		env.Logger.Warn("token has no recognized provider prefix")
		r.say("%s\n", r.style.Warning("That doesn't look like a personal access token, storing it anyway."))
	}
	updated, err := credentials.EncodeToken(url, inv.object)
	if errors.Is(err, credentials.ErrMissingUsername) {
		return fmt.Errorf("%w; set one first with `kaban user NAME`", err)
	}
	if err != nil {
		return err
	}
	if err := env.SetRemoteURL(updated); err != nil {
		return err
	}
	r.say("%s\n", r.style.Success("Token set."))
	return nil
}

func runAdd(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: the task needs a title", errMissingObject)
	}
	opts := models.TaskOptions{Bag: inv.flags.bag, Notes: inv.flags.notes}
	if inv.flags.estimate != "" {
		estimate, err := parseDuration(inv.flags.estimate)
		if err != nil {
			return err
		}
		opts.Estimate = estimate
	}
	recurring, err := models.ParseRecurrence(inv.flags.every)
	if err != nil {
		return err
	}
	opts.Recurring = recurring

	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	task, err := store.AddTask(inv.object, opts, inv.now)
	if err != nil {
		return err
	}
	inv.env.MarkDirty()

	ref := strconv.Itoa(store.Tasks.Len())
	if bag, ok := store.Bag(opts.Bag); ok && opts.Bag != "" {
		ref = fmt.Sprintf("%s/%d", bag.Title, bag.Tasks.Len())
	}
	inv.commitMessage = "Add task: " + task.Title
	r.say("%s %s %s\n", r.style.Success("Added"), task.Title, r.style.Muted(fmt.Sprintf("(%s, id %s)", ref, models.ShortID(task.ID))))
	return nil
}

func runBag(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: the bag needs a title", errMissingObject)
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	bag, err := store.AddBag(inv.object, inv.now)
	if err != nil {
		return err
	}
	bag.Notes = inv.flags.notes
	inv.env.MarkDirty()
	inv.commitMessage = "Add bag: " + bag.Title
	r.say("%s %s %s\n", r.style.Success("Added bag"), bag.Title, r.style.Muted(fmt.Sprintf("(id %s)", models.ShortID(bag.ID))))
	return nil
}

func runList(r *Runner, inv *invocation) error {
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	if inv.flags.bag != "" {
		bag, ok := store.Bag(inv.flags.bag)
		if !ok {
			return fmt.Errorf("%w: bag %q", models.ErrNotFound, inv.flags.bag)
		}
		r.printBag(bag, inv.now)
		return nil
	}
	if store.IsEmpty() {
		r.printf("%s\n", r.style.Muted("Nothing here yet. Add a task with `kaban add TITLE`."))
		return nil
	}
	if len(store.Tasks) > 0 {
		r.printf("%s\n", r.style.Header("Tasks"))
		for i := range store.Tasks {
			r.printTaskLine(strconv.Itoa(i+1), &store.Tasks[i], inv.now)
		}
	}
	for i := range store.Bags {
		r.printBag(&store.Bags[i], inv.now)
	}
	return nil
}

func (r *Runner) printBag(bag *models.Bag, now time.Time) {
	r.printf("%s %s\n", r.style.Header(bag.Title), r.style.Muted(fmt.Sprintf("(%d/%d done)", bag.Done(), bag.Tasks.Len())))
	if bag.Tasks.Len() == 0 {
		r.printf("  %s\n", r.style.Muted("empty"))
	}
	for i := range bag.Tasks {
		r.printTaskLine(fmt.Sprintf("%s/%d", bag.Title, i+1), &bag.Tasks[i], now)
	}
}

func (r *Runner) printTaskLine(ref string, task *models.Task, now time.Time) {
	var extra []string
	if task.HasEstimate() {
		extra = append(extra, fmt.Sprintf("%s/%s", formatDuration(task.Done), formatDuration(task.Estimate)))
	} else if task.Done > 0 {
		extra = append(extra, formatDuration(task.Done))
	}
	if task.Recurring != models.RecurNone {
		extra = append(extra, string(task.Recurring))
	}
	if task.IsComplete() {
		extra = append(extra, "done "+relativeTime(*task.DateCompleted, now))
	}
	line := fmt.Sprintf("  %s %s %s", r.style.Muted(ref+"."), r.style.taskIcon(task), task.Title)
	if len(extra) > 0 {
		line += " " + r.style.Muted("["+strings.Join(extra, ", ")+"]")
	}
	r.printf("%s\n", line)
}

func runShow(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: which task or bag?", errMissingObject)
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	entry, err := store.Resolve(inv.object)
	if err != nil {
		return err
	}
	now := inv.now
	if entry.Kind == models.EntryBag {
		bag := entry.Bag
		r.printf("%s\n", r.style.Header(bag.Title))
		r.printField("Kind", "bag")
		r.printField("ID", bag.ID)
		r.printField("Added", fmt.Sprintf("%s (%s)", bag.DateAdded.Local().Format(time.DateTime), relativeTime(bag.DateAdded, now)))
		r.printField("Tasks", fmt.Sprintf("%d, %d done", bag.Tasks.Len(), bag.Done()))
		if bag.Notes != "" {
			r.printField("Notes", bag.Notes)
		}
		return nil
	}

	task := entry.Task
	r.printf("%s %s\n", r.style.taskIcon(task), r.style.Header(task.Title))
	r.printField("Kind", "task")
	if entry.Parent != nil {
		r.printField("Bag", entry.Parent.Title)
	}
	r.printField("ID", task.ID)
	r.printField("Added", fmt.Sprintf("%s (%s)", task.DateAdded.Local().Format(time.DateTime), relativeTime(task.DateAdded, now)))
	if task.DateLastLogged != nil {
		r.printField("Last logged", relativeTime(*task.DateLastLogged, now))
	}
	if task.DateCompleted != nil {
		r.printField("Completed", relativeTime(*task.DateCompleted, now))
	}
	if task.Recurring != models.RecurNone {
		r.printField("Repeats", string(task.Recurring))
	}
	if task.HasEstimate() {
		r.printField("Progress", fmt.Sprintf("%s %s of %s, %s left", r.style.progressBar(task.Done, task.Estimate), formatDuration(task.Done), formatDuration(task.Estimate), formatDuration(task.Remaining())))
	} else {
		r.printField("Done", formatDuration(task.Done))
	}
	if task.Notes != "" {
		r.printField("Notes", task.Notes)
	}
	return nil
}

func (r *Runner) printField(label, value string) {
	r.printf("  %s %s\n", r.style.SubHeader(fmt.Sprintf("%-12s", label+":")), value)
}

func runLog(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: which task?", errMissingObject)
	}
	raw, ok := inv.value(0)
	if !ok {
		return fmt.Errorf("%w: how long? e.g. 30m", errMissingValue)
	}
	d, err := parseDuration(raw)
	if err != nil {
		return err
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	task, err := store.LogProgress(inv.object, d, inv.now)
	if err != nil {
		return err
	}
	inv.env.MarkDirty()
	inv.commitMessage = fmt.Sprintf("Log %s on %s", formatDuration(d), task.Title)

	progress := formatDuration(task.Done) + " done"
	if task.HasEstimate() {
		progress = fmt.Sprintf("%s of %s done", formatDuration(task.Done), formatDuration(task.Estimate))
	}
	r.say("%s %s on %s %s\n", r.style.Success("Logged"), formatDuration(d), task.Title, r.style.Muted("("+progress+")"))
	return nil
}

func runEstimate(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: which task?", errMissingObject)
	}
	raw, ok := inv.value(0)
	if !ok {
		return fmt.Errorf("%w: how long? e.g. 2h, or 0 to clear", errMissingValue)
	}
	var d time.Duration
	if raw != "0" && !strings.EqualFold(raw, "none") {
		parsed, err := parseDuration(raw)
		if err != nil {
			return err
		}
		d = parsed
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	task, err := store.SetEstimate(inv.object, d)
	if err != nil {
		return err
	}
	inv.env.MarkDirty()
	if d == 0 {
		inv.commitMessage = "Clear estimate of " + task.Title
		r.say("%s %s\n", r.style.Success("Cleared estimate of"), task.Title)
		return nil
	}
	inv.commitMessage = fmt.Sprintf("Estimate %s at %s", task.Title, formatDuration(d))
	r.say("%s %s at %s\n", r.style.Success("Estimated"), task.Title, formatDuration(d))
	return nil
}

func runDone(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: which task?", errMissingObject)
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	task, err := store.Complete(inv.object, inv.now)
	if err != nil {
		return err
	}
	inv.env.MarkDirty()
	inv.commitMessage = "Complete " + task.Title
	if task.Recurring != models.RecurNone {
		r.say("%s %s %s\n", r.style.Success("Done:"), task.Title, r.style.Muted(fmt.Sprintf("(back %s)", nextOccurrence(task.Recurring))))
		return nil
	}
	r.say("%s %s\n", r.style.Success("Done:"), task.Title)
	return nil
}

func runRemove(r *Runner, inv *invocation) error {
	if inv.object == "" {
		return fmt.Errorf("%w: which task or bag?", errMissingObject)
	}
	store, err := inv.env.Store()
	if err != nil {
		return err
	}
	removed, err := store.Remove(inv.object)
	if err != nil {
		return err
	}
	inv.env.MarkDirty()
	inv.commitMessage = fmt.Sprintf("Remove %s %s", removed.Kind, removed.Title())
	if removed.Kind == models.EntryBag && removed.Bag.Tasks.Len() > 0 {
		r.say("%s %s %s\n", r.style.Success("Removed"), removed.Label(), r.style.Muted(fmt.Sprintf("and its %d tasks", removed.Bag.Tasks.Len())))
		return nil
	}
	r.say("%s %s\n", r.style.Success("Removed"), removed.Label())
	return nil
}

func runPush(r *Runner, inv *invocation) error {
	env := inv.env
	if err := env.Repo.Push(env.Context()); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	url, _ := env.RemoteURL()
	r.say("%s %s\n", r.style.Success("Pushed to"), credentials.Redact(url))
	return nil
}

func runPull(r *Runner, inv *invocation) error {
	env := inv.env
	if err := env.Repo.Pull(env.Context(), inv.flags.merge); err != nil {
		if !inv.flags.merge {
			return fmt.Errorf("pull failed: %w (retry with --merge if the histories diverged)", err)
		}
		return fmt.Errorf("pull failed: %w", err)
	}
	url, _ := env.RemoteURL()
	r.say("%s %s\n", r.style.Success("Pulled from"), credentials.Redact(url))
	return nil
}

// parseDuration accepts Go durations ("1h30m") and bare numbers of
// minutes ("45").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if minutes, err := strconv.Atoi(raw); err == nil {
		if minutes <= 0 {
			return 0, fmt.Errorf("%w: %s", models.ErrInvalidDuration, raw)
		}
		return time.Duration(minutes) * time.Minute, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q (try 30m or 1h30m)", models.ErrInvalidDuration, raw)
	}
	return d, nil
}

// formatDuration trims the zero units time.Duration.String leaves in.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0m"
	}
	s := d.Round(time.Second).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

func nextOccurrence(recurring models.Recurrence) string {
	switch recurring {
	case models.RecurDaily:
		return "tomorrow"
	case models.RecurWeekdays:
		return "next weekday"
	case models.RecurWeekly:
		return "next week"
	case models.RecurMonthly:
		return "next month"
	case models.RecurYearly:
		return "next year"
	default:
		return "later"
	}
}
