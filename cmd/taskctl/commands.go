package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/urfave/cli/v2"
)

const (
	flagStatus      = "status"
	flagSortDue     = "sort-due"
	flagTitle       = "title"
	flagDescription = "description"
	flagDue         = "due"
	flagUnique      = "unique"
)

var errNothingToUpdate = errors.New("nothing to update: set at least one of --title, --description, --status, --due")

func (tc *taskctl) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list",
			Usage: "list tasks",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagStatus, Aliases: []string{"s"}, Usage: "only tasks in this status"},
				&cli.BoolFlag{Name: flagSortDue, Usage: "order by due date, undated tasks last"},
			},
			Action: tc.list,
		},
		{
			Name:      "get",
			Usage:     "show one task",
			ArgsUsage: "ID",
			Action:    tc.get,
		},
		{
			Name:   "overdue",
			Usage:  "list unfinished tasks whose due date has passed",
			Action: tc.overdue,
		},
		{
			Name:   "due-today",
			Usage:  "list tasks due today",
			Action: tc.dueToday,
		},
		{
			Name:      "search",
			Usage:     "list tasks whose title contains TERM, ignoring case",
			ArgsUsage: "TERM",
			Action:    tc.search,
		},
		{
			Name:   "stats",
			Usage:  "count tasks by status",
			Action: tc.stats,
		},
		{
			Name:  "create",
			Usage: "create a task",
			Flags: append(taskFlags(true),
				&cli.BoolFlag{Name: flagUnique, Usage: "refuse a title that already exists, ignoring case"},
			),
			Action: tc.create,
		},
		{
			Name:      "update",
			Usage:     "change the given fields of a task",
			ArgsUsage: "ID",
			Flags:     taskFlags(false),
			Action:    tc.update,
		},
		{
			Name:      "status",
			Usage:     "move a task to another status",
			ArgsUsage: "ID STATUS",
			Action:    tc.setStatus,
		},
		{
			Name:      "delete",
			Usage:     "delete a task",
			ArgsUsage: "ID",
			Action:    tc.remove,
		},
	}
}

func taskFlags(titleRequired bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagTitle, Aliases: []string{"t"}, Required: titleRequired, Usage: "task title"},
		&cli.StringFlag{Name: flagDescription, Aliases: []string{"d"}, Usage: "task description"},
		&cli.StringFlag{Name: flagStatus, Aliases: []string{"s"}, Usage: "TODO, IN_PROGRESS or DONE"},
		&cli.StringFlag{Name: flagDue, Usage: "due date as YYYY-MM-DD"},
	}
}

func (tc *taskctl) list(ctx *cli.Context) error {
	var (
		tasks []*domain.Task
		err   error
	)

	var status *domain.TaskStatus
	if ctx.IsSet(flagStatus) {
		s, err := domain.ParseTaskStatus(ctx.String(flagStatus))
		if err != nil {
			return err
		}
		status = &s
	}

	if ctx.Bool(flagSortDue) {
		tasks, err = tc.service.ListByDueDate(ctx.Context)
		tasks = domain.FilterByStatus(tasks, status)
	} else {
		tasks, err = tc.service.ListTasks(ctx.Context, status)
	}
	if err != nil {
		return err
	}
	return tc.printTasks(tasks)
}

func (tc *taskctl) get(ctx *cli.Context) error {
	id, err := idArg(ctx, 1)
	if err != nil {
		return err
	}
	task, err := tc.service.GetTask(ctx.Context, id)
	if err != nil {
		return err
	}
	return tc.printTask(task)
}

func (tc *taskctl) overdue(ctx *cli.Context) error {
	tasks, err := tc.service.ListOverdue(ctx.Context)
	if err != nil {
		return err
	}
	return tc.printTasks(tasks)
}

func (tc *taskctl) dueToday(ctx *cli.Context) error {
	tasks, err := tc.service.ListDueToday(ctx.Context)
	if err != nil {
		return err
	}
	return tc.printTasks(tasks)
}

func (tc *taskctl) search(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("search expects exactly one TERM, got %d arguments", ctx.NArg())
	}
	tasks, err := tc.service.SearchTasks(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}
	return tc.printTasks(tasks)
}

func (tc *taskctl) stats(ctx *cli.Context) error {
	counts, err := tc.service.CountByStatus(ctx.Context)
	if err != nil {
		return err
	}
	return tc.printStats(counts)
}

func (tc *taskctl) create(ctx *cli.Context) error {
	draft, err := draftFromFlags(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool(flagUnique) {
		exists, err := tc.service.TitleExists(ctx.Context, *draft.Title)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %q", service.ErrDuplicateTitle, *draft.Title)
		}
	}

	task, err := tc.service.CreateTask(ctx.Context, draft)
	if err != nil {
		return err
	}
	return tc.printTask(task)
}

func (tc *taskctl) update(ctx *cli.Context) error {
	id, err := idArg(ctx, 1)
	if err != nil {
		return err
	}
	draft, err := draftFromFlags(ctx)
	if err != nil {
		return err
	}
	if draft == (domain.TaskDraft{}) {
		return errNothingToUpdate
	}

	task, err := tc.service.ReplaceTask(ctx.Context, id, draft)
	if err != nil {
		return err
	}
	return tc.printTask(task)
}

func (tc *taskctl) setStatus(ctx *cli.Context) error {
	id, err := idArg(ctx, 2)
	if err != nil {
		return err
	}
	status, err := domain.ParseTaskStatus(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	task, err := tc.service.SetStatus(ctx.Context, id, status)
	if err != nil {
		return err
	}
	return tc.printTask(task)
}

func (tc *taskctl) remove(ctx *cli.Context) error {
	id, err := idArg(ctx, 1)
	if err != nil {
		return err
	}
	if err := tc.service.DeleteTask(ctx.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(tc.out, "deleted task %d\n", id)
	return nil
}

// idArg parses the first positional argument as a task id after checking
// that exactly want arguments were given.
func idArg(ctx *cli.Context, want int) (int64, error) {
	if ctx.NArg() != want {
		return 0, fmt.Errorf("%s expects %s, got %d arguments",
			ctx.Command.Name, ctx.Command.ArgsUsage, ctx.NArg())
	}
	raw := ctx.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}

// draftFromFlags sets only the fields whose flags were given, so an
// update leaves everything else alone.
func draftFromFlags(ctx *cli.Context) (domain.TaskDraft, error) {
	var draft domain.TaskDraft

	if ctx.IsSet(flagTitle) {
		title := ctx.String(flagTitle)
		draft.Title = &title
	}
	if ctx.IsSet(flagDescription) {
		description := ctx.String(flagDescription)
		draft.Description = &description
	}
	if ctx.IsSet(flagStatus) {
		status, err := domain.ParseTaskStatus(ctx.String(flagStatus))
		if err != nil {
			return domain.TaskDraft{}, err
		}
		draft.Status = &status
	}
	if ctx.IsSet(flagDue) {
		due, err := domain.ParseDate(ctx.String(flagDue))
		if err != nil {
			return domain.TaskDraft{}, err
		}
		draft.DueDate = &due
	}
	return draft, nil
}
