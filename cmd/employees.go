package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List enrolled employees",
	Long: `List enrolled employees. With --search, names are compared after
normalization (case and diacritics insensitive).`,
	RunE: runEmployees,
}

func init() {
	rootCmd.AddCommand(employeesCmd)

	employeesCmd.Flags().String("search", "", "Filter by (normalized) name substring")
}

func runEmployees(cmd *cobra.Command, args []string) error {
	search := store.NormalizeName(mustGetString(cmd, "search"))

	cfg := config.Load()
	repo, pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	employees, err := repo.ListActive(context.Background())
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}

	var shown int
	for _, emp := range employees {
		if search != "" && !strings.Contains(store.NormalizeName(emp.Name), search) {
			continue
		}
		shift := "-"
		if emp.ShiftID != nil {
			shift = fmt.Sprintf("%d", *emp.ShiftID)
		}
		fmt.Printf("%-12s %-30s shift=%-4s enrolled=%s\n",
			emp.EmployeeID, emp.Name, shift, emp.CreatedAt.Format("2006-01-02"))
		shown++
	}

	fmt.Printf("\n%d employee(s)\n", shown)
	return nil
}
