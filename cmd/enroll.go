package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store/hrimport"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [directory]",
	Short: "Bulk-enroll employees from photos",
	Long: `Bulk-enroll employees from a directory of photos. Each file is named
<employee_id>_<name>.jpg; the face embedding is captured once and the
duplicate-identity guard applies to every photo.

With --from-hr, employee IDs and names come from the legacy HR database
(HR_IMPORT_DSN) and photos are read from the paths it references.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("from-hr", false, "Import employee identities from the legacy HR database")
}

// enrollTarget is one pending enrollment resolved from a photo file or an
// HR row.
type enrollTarget struct {
	employeeID string
	name       string
	photoPath  string
}

// parsePhotoFilename splits <employee_id>_<name>.<ext> into its parts.
func parsePhotoFilename(path string) (employeeID, name string, err error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, rest, found := strings.Cut(base, "_")
	if !found || id == "" || rest == "" {
		return "", "", fmt.Errorf("filename %q does not match <employee_id>_<name>.<ext>", filepath.Base(path))
	}
	return id, strings.ReplaceAll(rest, "_", " "), nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

// collectFromDirectory builds enrollment targets from photo filenames.
func collectFromDirectory(dir string) ([]enrollTarget, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var targets []enrollTarget
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		id, name, err := parsePhotoFilename(e.Name())
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", e.Name(), err)
			continue
		}
		targets = append(targets, enrollTarget{employeeID: id, name: name, photoPath: filepath.Join(dir, e.Name())})
	}
	return targets, nil
}

// collectFromHR builds enrollment targets from the legacy HR database.
func collectFromHR(ctx context.Context, dsn string) ([]enrollTarget, error) {
	hr, err := hrimport.NewPool(dsn)
	if err != nil {
		return nil, err
	}
	defer hr.Close()

	records, err := hr.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	var targets []enrollTarget
	for _, rec := range records {
		if rec.PhotoPath == "" {
			fmt.Printf("Skipping %s (%s): no photo on file\n", rec.EmployeeID, rec.Name)
			continue
		}
		targets = append(targets, enrollTarget{employeeID: rec.EmployeeID, name: rec.Name, photoPath: rec.PhotoPath})
	}
	return targets, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	fromHR := mustGetBool(cmd, "from-hr")
	if !fromHR && len(args) == 0 {
		return errors.New("provide a photo directory or use --from-hr")
	}

	cfg := config.Load()
	ctx := context.Background()

	var targets []enrollTarget
	var err error
	if fromHR {
		targets, err = collectFromHR(ctx, cfg.Database.HRImportDSN)
	} else {
		targets, err = collectFromDirectory(args[0])
	}
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Println("Nothing to enroll")
		return nil
	}

	repo, pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	engine := attendance.NewEngine(repo, repo, repo,
		cfg.Attendance.AutoExitThreshold,
		constants.ShiftCacheTTL, constants.SettingsCacheTTL,
		cfg.Attendance.Timezone, defaultOffice(cfg))

	pipe := pipeline.New(repo, engine, match.New(cfg.Matching.Workers), match.NewIndex(),
		facecap.NewClient(cfg.Face.URL), hub.New(), nil, pipeline.Options{
			Workers:        cfg.Matching.Workers,
			MatchThreshold: cfg.Matching.Threshold,
		})

	bar := progressbar.NewOptions(len(targets),
		progressbar.OptionSetDescription("Enrolling employees"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var enrolled, skipped, failed int
	for _, t := range targets {
		image, err := os.ReadFile(t.photoPath)
		if err != nil {
			fmt.Printf("\n%s: reading photo: %v\n", t.employeeID, err)
			failed++
			bar.Add(1)
			continue
		}

		_, err = pipe.RegisterEmployee(ctx, t.employeeID, t.name, image, nil)
		switch {
		case err == nil:
			enrolled++
		case errors.Is(err, pipeline.ErrEmployeeExists):
			skipped++
		default:
			fmt.Printf("\n%s: %v\n", t.employeeID, err)
			failed++
		}
		bar.Add(1)
	}

	fmt.Printf("\n\nEnrolled: %d, skipped (already enrolled): %d, failed: %d\n", enrolled, skipped, failed)
	return nil
}
