package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/nibzard/tasklist-go/internal/config"
	"github.com/nibzard/tasklist-go/internal/manager"
	"github.com/nibzard/tasklist-go/internal/todo"
)

// withSession opens a session, loads the stored list, runs fn and waits for
// every save fn issued.
func withSession(ctx context.Context, cfg *config.Config, fn func(*manager.Manager) error) error {
	s, err := openSession(ctx, cfg, &stderrNotifier{})
	if err != nil {
		return err
	}
	if err := s.load(ctx); err != nil {
		s.close(ctx)
		return err
	}
	runErr := fn(s.mgr)
	closeErr := s.close(ctx)
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("saving tasks: %w", closeErr)
	}
	return nil
}

// lsCommand lists tasks in list order.
func lsCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasklist ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	onlyDone := fs.Bool("done", false, "Only completed tasks")
	onlyOpen := fs.Bool("open", false, "Only open tasks")
	asJSON := fs.Bool("json", false, "Print the stored JSON encoding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *onlyDone && *onlyOpen {
		return fmt.Errorf("-done and -open are mutually exclusive")
	}

	return withSession(ctx, cfg, func(mgr *manager.Manager) error {
		all := mgr.Tasks()
		tasks := all
		if *onlyDone || *onlyOpen {
			tasks = nil
			for _, t := range all {
				if t.Completed == *onlyDone {
					tasks = append(tasks, t)
				}
			}
		}

		if *asJSON {
			data, err := todo.Encode(tasks)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, string(data))
			return nil
		}

		if len(tasks) == 0 {
			fmt.Fprintln(stdout, "No tasks found.")
			return nil
		}
		for _, t := range tasks {
			printTask(t)
		}
		fmt.Fprintf(stdout, "\n%d/%d done\n", todo.CountCompleted(all), len(all))
		return nil
	})
}

// addCommand appends a task built from the remaining arguments.
func addCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tasklist add <text>")
	}
	text := strings.Join(args, " ")

	return withSession(ctx, cfg, func(mgr *manager.Manager) error {
		task, p, err := mgr.Add(text)
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return fmt.Errorf("saving tasks: %w", err)
		}
		fmt.Fprintf(stdout, "Added %s\n", task.ID)
		return nil
	})
}

// editCommand replaces the text of one task.
func editCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tasklist edit <id> <text>")
	}
	text := strings.Join(args[1:], " ")

	return withSession(ctx, cfg, func(mgr *manager.Manager) error {
		task, err := resolveTask(mgr.Tasks(), args[0])
		if err != nil {
			return err
		}
		mgr.BeginEdit(task)
		mgr.SetEditDraft(text)
		p, err := mgr.CommitEdit()
		if err != nil {
			mgr.CancelEdit()
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return fmt.Errorf("saving tasks: %w", err)
		}
		fmt.Fprintf(stdout, "Updated %s\n", task.ID)
		return nil
	})
}

// toggleCommand flips the completed flag of one task.
func toggleCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasklist toggle <id>")
	}

	return withSession(ctx, cfg, func(mgr *manager.Manager) error {
		task, err := resolveTask(mgr.Tasks(), args[0])
		if err != nil {
			return err
		}
		if err := mgr.ToggleCompleted(task.ID).Wait(ctx); err != nil {
			return fmt.Errorf("saving tasks: %w", err)
		}
		updated, _ := mgr.Find(task.ID)
		printTask(updated)
		return nil
	})
}

// rmCommand deletes one task.
func rmCommand(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasklist rm <id>")
	}

	return withSession(ctx, cfg, func(mgr *manager.Manager) error {
		task, err := resolveTask(mgr.Tasks(), args[0])
		if err != nil {
			return err
		}
		if err := mgr.Delete(task.ID).Wait(ctx); err != nil {
			return fmt.Errorf("saving tasks: %w", err)
		}
		fmt.Fprintf(stdout, "Deleted %s\n", task.ID)
		return nil
	})
}

// resolveTask finds the task whose id equals ref or, failing that, the only
// task whose id starts with ref.
func resolveTask(tasks []todo.Task, ref string) (todo.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return todo.Task{}, fmt.Errorf("task id is empty")
	}
	if t, ok := todo.Find(tasks, ref); ok {
		return t, nil
	}

	var matches []todo.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return todo.Task{}, fmt.Errorf("no task with id %q", ref)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, t := range matches {
			ids[i] = t.ID
		}
		return todo.Task{}, fmt.Errorf("task id %q is ambiguous: %s", ref, strings.Join(ids, ", "))
	}
}

// printTask prints a single task.
func printTask(t todo.Task) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(stdout, "%s %s  %s\n", box, t.ID, t.Text)
}
