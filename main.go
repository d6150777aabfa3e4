package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"campus-timetable/config"
	"campus-timetable/googlecalendar"
	"campus-timetable/logger"
	"campus-timetable/scraper"
	"campus-timetable/store"
	"campus-timetable/timetable"
	"campus-timetable/uploader"
)

var build = "develop"

var readPasswordFunc = term.ReadPassword // mockable

func main() {
	configPath := flag.String("config", "", "path to a config file (json, yaml or toml)")
	cached := flag.Bool("cached", false, "serve from the local cache when it has data")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *cached, os.Stdout); err != nil {
		log.Fatalf("timetable: %+v", err)
	}
}

func run(ctx context.Context, configPath string, cached bool, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	host, _ := os.Hostname()
	rl := logger.NewRollbarLogger(log.New(os.Stderr, "", log.LstdFlags), logger.Options{
		RollbarToken: cfg.RollbarToken,
		Env:          cfg.Env,
		Host:         host,
		Build:        build,
		Debug:        cfg.Debug,
	})
	defer rl.Close()

	if cfg.Password == "" {
		if cfg.Password, err = promptPassword(out, int(os.Stdin.Fd())); err != nil {
			return err
		}
	}

	auth, err := scraper.NewPortalAuthenticator(cfg.LoginURL, cfg.Username, cfg.Password, rl)
	if err != nil {
		return err
	}
	source := newSource(cfg, auth, rl)

	s, err := store.Open(filepath.Join(cfg.CacheDir, store.CacheFileName(source.StudentType())), source, rl)
	if err != nil {
		return err
	}
	startDates, err := cfg.StartDateContext()
	if err != nil {
		return err
	}

	load := s.Load
	if cached {
		load = s.LoadCached
	}
	tt, err := load(ctx, startDates, progressPrinter(out))
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	printTimetable(out, tt)

	for _, exporter := range exporters(ctx, cfg, rl) {
		if err := exporter.Export(ctx, tt.Semester, tt.Courses); err != nil {
			return err
		}
	}

	if cfg.Github.Token != "" && cfg.Export.ICSPath != "" {
		path := cfg.Github.Path
		if path == "" {
			path = filepath.Base(cfg.Export.ICSPath)
		}
		if err := uploader.UploadToGitHub(ctx, cfg.Github.Token, cfg.Github.Repo, path, cfg.Export.ICSPath); err != nil {
			return err
		}
		rl.Info("uploaded calendar", map[string]interface{}{"repo": cfg.Github.Repo, "path": path})
	}
	return nil
}

func newSource(cfg *config.Config, auth scraper.Authenticator, log logger.Logger) store.Source {
	if cfg.StudentType == timetable.Graduate {
		return scraper.NewGraduateSource(auth, cfg.Graduate.Endpoints, cfg.Graduate.Concurrency, log)
	}
	src := scraper.NewUndergraduateSource(auth, cfg.Undergraduate.Endpoints, log)
	src.Legacy = cfg.Undergraduate.Legacy
	return src
}

func exporters(ctx context.Context, cfg *config.Config, log logger.Logger) []timetable.CalendarExporter {
	var out []timetable.CalendarExporter
	if cfg.Export.ICSPath != "" {
		out = append(out, googlecalendar.NewICSExporter(cfg.Export.ICSPath))
	}
	if cfg.Google.Enabled {
		service, err := googlecalendar.GetCalendarService(ctx, cfg.Google, readAuthCode(os.Stdin, os.Stdout), log)
		if err != nil {
			log.Error("google calendar unavailable", err)
		} else {
			out = append(out, googlecalendar.NewSyncer(service, cfg.Google.CalendarID, log))
		}
	}
	return out
}

func promptPassword(out io.Writer, fd int) (string, error) {
	fmt.Fprint(out, "Password: ")
	pw, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(pw), nil
}

func readAuthCode(in io.Reader, out io.Writer) googlecalendar.AuthCodeFunc {
	return func(authURL string) (string, error) {
		fmt.Fprintf(out, "Open this link in your browser, then paste the authorization code:\n%s\n> ", authURL)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrap(err, "read authorization code")
		}
		return strings.TrimSpace(line), nil
	}
}

func progressPrinter(out io.Writer) timetable.ProgressFunc {
	return func(p float64) {
		fmt.Fprintf(out, "\rloading courses %3.0f%%", p*100)
	}
}

var weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func printTimetable(out io.Writer, tt *store.Timetable) {
	fmt.Fprintf(out, "%s, week %d", tt.Semester.Name(), tt.Week)
	if start := tt.WeekStart(); start != nil {
		fmt.Fprintf(out, " (from %s)", start.Format("2006-01-02"))
	}
	fmt.Fprintln(out)

	courses := tt.CoursesInWeek(tt.Week)
	if len(courses) == 0 {
		fmt.Fprintln(out, "no classes this week")
		return
	}
	for _, c := range courses {
		first, _ := timetable.Slot(c.Start + 1)
		last, _ := timetable.Slot(c.End + 1)
		day := "?"
		if c.Weekday >= 0 && c.Weekday < len(weekdays) {
			day = weekdays[c.Weekday]
		}
		fmt.Fprintf(out, "%s %s-%s  %s (%s)  %s  %s\n", day, first.Start, last.End, c.Name, c.Code, c.Location, c.Recurrence())
	}
}
