package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
)

func (tc *taskctl) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(tc.out, 0, 4, 2, ' ', 0)
}

func (tc *taskctl) printJSON(v any) error {
	enc := json.NewEncoder(tc.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (tc *taskctl) printTasks(tasks []*domain.Task) error {
	if tc.asJSON {
		if tasks == nil {
			tasks = []*domain.Task{}
		}
		return tc.printJSON(tasks)
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(tc.out, "no tasks")
		return err
	}

	today := tc.service.Today()
	tw := tc.newTable()
	fmt.Fprintln(tw, "ID\tSTATUS\tDUE\tTITLE")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", task.ID.Int64(), task.Status, dueLabel(task, today), task.Title)
	}
	return tw.Flush()
}

func (tc *taskctl) printTask(task *domain.Task) error {
	if tc.asJSON {
		return tc.printJSON(task)
	}

	description := "-"
	if task.Description != nil {
		description = *task.Description
	}

	tw := tc.newTable()
	fmt.Fprintf(tw, "ID:\t%d\n", task.ID.Int64())
	fmt.Fprintf(tw, "Title:\t%s\n", task.Title)
	fmt.Fprintf(tw, "Description:\t%s\n", description)
	fmt.Fprintf(tw, "Status:\t%s\n", task.Status)
	fmt.Fprintf(tw, "Due:\t%s\n", dueLabel(task, tc.service.Today()))
	fmt.Fprintf(tw, "Created:\t%s\n", task.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", task.UpdatedAt.Format(time.RFC3339))
	return tw.Flush()
}

func (tc *taskctl) printStats(counts map[domain.TaskStatus]int64) error {
	var total int64
	for _, n := range counts {
		total += n
	}
	if tc.asJSON {
		return tc.printJSON(struct {
			Counts map[domain.TaskStatus]int64 `json:"counts"`
			Total  int64                       `json:"total"`
		}{counts, total})
	}

	tw := tc.newTable()
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	for _, status := range domain.AllTaskStatuses() {
		fmt.Fprintf(tw, "%s\t%d\n", status, counts[status])
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", total)
	return tw.Flush()
}

// dueLabel renders the due date with a marker for overdue tasks and
// tasks due today.
func dueLabel(task *domain.Task, today domain.Date) string {
	switch {
	case task.DueDate == nil:
		return "-"
	case task.IsOverdue(today):
		return task.DueDate.String() + " (overdue)"
	case task.IsDueToday(today):
		return task.DueDate.String() + " (today)"
	default:
		return task.DueDate.String()
	}
}
