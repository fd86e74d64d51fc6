package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"daybook/internal/calendar"
	"daybook/internal/client"
	"daybook/internal/models"
)

type weekOptions struct {
	url      string
	email    string
	password string
	start    string
}

func newWeekCommand() *cobra.Command {
	var opts weekOptions

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Print one week of tasks and holidays",
		Long: `Logs in through the HTTP API and prints the week starting at --start
(default: the Sunday of the current week).

The password may be given with DAYBOOK_PASSWORD instead of --password.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("DAYBOOK_PASSWORD")
			}
			return runWeek(cmd.Context(), cmd.OutOrStdout(), opts, time.Now())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "http://localhost:8080", "Base URL of the daybook server")
	flags.StringVar(&opts.email, "email", "", "Account email")
	flags.StringVar(&opts.password, "password", "", "Account password")
	flags.StringVar(&opts.start, "start", "", "First day of the week (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runWeek(ctx context.Context, out io.Writer, opts weekOptions, now time.Time) error {
	today := models.DayKey(now)
	start := opts.start
	if start == "" {
		start = models.DayKey(now.AddDate(0, 0, -int(now.Weekday())))
	}
	first, last, err := calendar.WeekRange(start)
	if err != nil {
		return err
	}

	c, err := client.New(opts.url, nil)
	if err != nil {
		return err
	}
	if err := c.Login(ctx, opts.email, opts.password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = c.Logout(ctx) }()

	s := client.NewSession(c)
	defer s.Close()
	if err := s.Load(ctx, first, last); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	years := []int{yearOfDay(first)}
	if y := yearOfDay(last); y != years[0] {
		years = append(years, y)
	}
	for _, year := range years {
		if err := s.LoadHolidays(ctx, year); err != nil {
			return fmt.Errorf("load holidays: %w", err)
		}
	}

	view, err := s.Week(first, today)
	if err != nil {
		return err
	}
	printWeek(out, view)
	return nil
}

func printWeek(out io.Writer, view calendar.WeekView) {
	fmt.Fprintf(out, "Week %s .. %s\n", view.Start, view.End)
	for _, cell := range view.Cells {
		marker := " "
		if cell.Today {
			marker = ">"
		}
		date, _ := time.Parse(models.DayLayout, cell.Date)
		fmt.Fprintf(out, "%s %s %s\n", marker, date.Format("Mon"), cell.Date)
		for _, h := range cell.Holidays {
			fmt.Fprintf(out, "    ! %s\n", h.Name)
		}
		for _, t := range cell.Tasks {
			check := "[ ]"
			if t.Completed {
				check = "[x]"
			}
			fmt.Fprintf(out, "    %s %s", check, t.Title)
			if t.Category != "" {
				fmt.Fprintf(out, " (%s)", t.Category)
			}
			fmt.Fprintln(out)
		}
	}
}

func yearOfDay(day string) int {
	t, err := time.Parse(models.DayLayout, day)
	if err != nil {
		return 0
	}
	return t.Year()
}
