package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"schedstore/internal/config"
	"schedstore/internal/docstore"
	"schedstore/pkg/jobstore"
	"schedstore/pkg/logx"
	"schedstore/pkg/quartz"
)

const usage = `usage: schedstore [-config path] <command>

commands:
  counts      print job, trigger, and calendar counts
  jobs        list stored jobs by group
  triggers    list stored triggers with state and next fire time
  calendars   list stored calendar names
  clear       remove all scheduling data and verify the store is empty
  monitor     poll and print triggers coming due (watches config for changes)
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./schedstore.yaml", "path to config (yaml or json)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, cmd); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, cmd string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logx.New(cfg.LogxConfig())
	if err != nil {
		return err
	}
	defer log.Close()
	mgr.SetLogger(log)

	settings, err := cfg.StoreSettings()
	if err != nil {
		return err
	}
	docs, err := docstore.Open(settings.Docstore, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer docs.Close()

	store := jobstore.New(docs, log)
	if err := store.SetMisfireThreshold(settings.MisfireThreshold); err != nil {
		return err
	}

	switch cmd {
	case "counts":
		return printCounts(ctx, store)
	case "jobs":
		return printJobs(ctx, store)
	case "triggers":
		return printTriggers(ctx, store)
	case "calendars":
		return printCalendars(ctx, store)
	case "clear":
		return store.ClearAllSchedulingData(ctx)
	case "monitor":
		return monitor(ctx, mgr, store, log)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printCounts(ctx context.Context, store *jobstore.Store) error {
	jobs, err := store.NumberOfJobs(ctx)
	if err != nil {
		return err
	}
	triggers, err := store.NumberOfTriggers(ctx)
	if err != nil {
		return err
	}
	calendars, err := store.NumberOfCalendars(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("jobs: %d\ntriggers: %d\ncalendars: %d\n", jobs, triggers, calendars)
	return nil
}

func printJobs(ctx context.Context, store *jobstore.Store) error {
	keys, err := store.JobKeys(ctx, quartz.AnyGroup())
	if err != nil {
		return err
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Name < keys[j].Name
	})
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tNAME\tHANDLER\tDURABLE")
	for _, k := range keys {
		job, err := store.RetrieveJob(ctx, k)
		if err != nil {
			return err
		}
		if job == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", job.Group, job.Name, job.Handler, job.Durable)
	}
	return w.Flush()
}

func printTriggers(ctx context.Context, store *jobstore.Store) error {
	keys, err := store.TriggerKeys(ctx, quartz.AnyGroup())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tNAME\tKIND\tJOB\tSTATE\tNEXT FIRE")
	for _, k := range keys {
		t, err := store.RetrieveTrigger(ctx, k)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		c := t.Core()
		next := "-"
		if c.NextFireTime != nil {
			next = c.NextFireTime.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Group, c.Name, t.Kind(), c.JobKey(), c.State, next)
	}
	return w.Flush()
}

func printCalendars(ctx context.Context, store *jobstore.Store) error {
	names, err := store.CalendarNames(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// monitor polls for triggers coming due within the configured horizon.
// It subscribes to config reloads so interval and horizon can be tuned
// while it runs.
func monitor(ctx context.Context, mgr *config.Manager, store *jobstore.Store, log logx.Logger) error {
	settings, err := mgr.Get().MonitorSettings()
	if err != nil {
		return err
	}

	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	ticker := time.NewTicker(settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-updates:
			fresh, err := cfg.MonitorSettings()
			if err != nil {
				log.Warn("ignoring invalid monitor settings", logx.Err(err))
				continue
			}
			if fresh.Interval != settings.Interval {
				ticker.Reset(fresh.Interval)
			}
			settings = fresh
			log.Info("monitor settings reloaded",
				logx.Duration("interval", settings.Interval),
				logx.Duration("horizon", settings.Horizon))
		case <-ticker.C:
			if err := printDue(ctx, store, settings); err != nil {
				log.Error("monitor poll failed", logx.Err(err))
			}
		}
	}
}

// printDue lists waiting triggers due within the horizon. Read-only: it
// inspects fire times rather than acquiring, so a live engine is not
// disturbed.
func printDue(ctx context.Context, store *jobstore.Store, s config.MonitorSettings) error {
	keys, err := store.TriggerKeys(ctx, quartz.AnyGroup())
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(s.Horizon)
	n := 0
	for _, k := range keys {
		if n >= s.MaxTriggers {
			break
		}
		t, err := store.RetrieveTrigger(ctx, k)
		if err != nil {
			return err
		}
		if t == nil || t.Core().State != quartz.StateWaiting {
			continue
		}
		next := t.Core().NextFireTime
		if next == nil || next.After(cutoff) {
			continue
		}
		fmt.Printf("%s due %s (job %s)\n", k, next.UTC().Format(time.RFC3339), t.Core().JobKey())
		n++
	}
	if n == 0 {
		fmt.Printf("no triggers due within %s\n", s.Horizon)
	}
	return nil
}
