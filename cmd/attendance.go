package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Print a daily attendance report",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("date", "", "Day to report (YYYY-MM-DD, default today)")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		loc = time.UTC
	}

	date := mustGetString(cmd, "date")
	var day time.Time
	if date == "" {
		now := time.Now().In(loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	} else {
		day, err = time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
		}
	}

	repo, pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	records, err := repo.ListRange(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}
	employees, err := repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}

	byID := make(map[int64]store.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}

	fmt.Printf("Attendance for %s\n\n", day.Format("2006-01-02"))

	var stats store.DayStats
	for _, rec := range records {
		name := "(unknown)"
		if emp, ok := byID[rec.EmployeeID]; ok {
			name = fmt.Sprintf("%s (%s)", emp.Name, emp.EmployeeID)
		}

		exit := "-"
		if rec.ExitTime != nil {
			exit = rec.ExitTime.In(loc).Format("15:04")
		}

		flags := ""
		if rec.IsLate {
			flags += " LATE"
			stats.Late++
		}
		if rec.IsEarlyExit {
			flags += " EARLY-EXIT"
			stats.EarlyExits++
		}
		stats.Present++

		fmt.Printf("%-40s in=%s out=%-6s conf=%.2f%s\n",
			name, rec.Timestamp.In(loc).Format("15:04"), exit, rec.Confidence, flags)
	}

	fmt.Printf("\nPresent: %d, Late: %d, Early exits: %d\n", stats.Present, stats.Late, stats.EarlyExits)
	return nil
}
