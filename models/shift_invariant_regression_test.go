package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/techetime/timeclock_backend/config"
	"github.com/techetime/timeclock_backend/models"
	"github.com/techetime/timeclock_backend/models/reports"
	"github.com/techetime/timeclock_backend/utils"
)

func TestOpenShiftInvariantUnderConcurrentPunches(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "timeclock_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTables(); err != nil {
		t.Fatalf("MigrateTables: %v", err)
	}

	business, owner, err := models.RegisterBusiness(ctx, &models.NewBusiness{
		Name:          "Punch Co",
		Timezone:      "UTC",
		OwnerName:     "Owner",
		OwnerEmail:    "owner@punch.test",
		OwnerPassword: "password123",
	})
	if err != nil {
		t.Fatalf("RegisterBusiness: %v", err)
	}

	ctx = utils.SetBusinessIdInContext(ctx, business.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleOwner))

	location, err := models.CreateLocation(ctx, &models.NewLocation{Name: "Main"})
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}

	worker, err := models.CreateUser(ctx, &models.NewUser{
		Role:             models.UserRoleWorker,
		FirstName:        "Pat",
		LastName:         "Punch",
		LocationId:       location.ID,
		Pin:              "4321",
		InitialRateCents: 1500,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Concurrent clock-ins: exactly one may open a shift, every other
	// attempt must come back Conflict. This is the core invariant.
	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = models.ClockIn(ctx, &models.NewTimeEntry{
				UserId:     worker.ID,
				LocationId: location.ID,
			})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case utils.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected clock-in error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful clock-in, got %d (%d conflicts)", successes, conflicts)
	}

	open, err := models.GetOpenEntry(ctx, worker.ID)
	if err != nil {
		t.Fatalf("GetOpenEntry: %v", err)
	}
	if open == nil {
		t.Fatal("expected an open shift after the concurrent punches")
	}

	// PIN punch while a shift is open must close it, not open a second one.
	punch, err := models.TogglePin(ctx, &models.PinPunchInput{Pin: "4321"})
	if err != nil {
		t.Fatalf("TogglePin: %v", err)
	}
	if punch.Action != models.ClockActionOut {
		t.Fatalf("expected clock-out punch, got %q", punch.Action)
	}
	if punch.HoursWorked == nil {
		t.Fatal("clock-out punch must report hours worked")
	}
	if punch.MessageType != models.PunchMessageBreak {
		t.Fatalf("a seconds-long shift must classify as break, got %q", punch.MessageType)
	}

	open, err = models.GetOpenEntry(ctx, worker.ID)
	if err != nil {
		t.Fatalf("GetOpenEntry after punch: %v", err)
	}
	if open != nil {
		t.Fatal("shift must be closed after clock-out punch")
	}

	// PIN punch with no open shift opens one.
	punch, err = models.TogglePin(ctx, &models.PinPunchInput{Pin: "4321"})
	if err != nil {
		t.Fatalf("TogglePin (second): %v", err)
	}
	if punch.Action != models.ClockActionIn {
		t.Fatalf("expected clock-in punch, got %q", punch.Action)
	}
	if punch.IsInitialClockIn {
		t.Fatal("a second clock-in of the day must not report as initial")
	}

	// A worker with no entries today gets the first-punch greeting.
	lateStarter, err := models.CreateUser(ctx, &models.NewUser{
		Role:             models.UserRoleWorker,
		FirstName:        "Lee",
		LastName:         "Late",
		LocationId:       location.ID,
		Pin:              "8642",
		InitialRateCents: 1500,
	})
	if err != nil {
		t.Fatalf("CreateUser (late starter): %v", err)
	}
	punch, err = models.TogglePin(ctx, &models.PinPunchInput{Pin: "8642"})
	if err != nil {
		t.Fatalf("TogglePin (late starter): %v", err)
	}
	if punch.Action != models.ClockActionIn {
		t.Fatalf("expected clock-in punch, got %q", punch.Action)
	}
	if !punch.IsInitialClockIn {
		t.Fatal("first punch of the day must report as initial")
	}
	if _, err := models.ClockOut(ctx, lateStarter.ID); err != nil {
		t.Fatalf("ClockOut (late starter): %v", err)
	}

	// Wrong PIN stays a not-found, never a fallthrough to some worker.
	if _, err := models.TogglePin(ctx, &models.PinPunchInput{Pin: "9999"}); !utils.IsNotFound(err) {
		t.Fatalf("wrong pin: expected not-found, got %v", err)
	}

	// Correction closes the open shift out-of-band, then the report prices it.
	open, err = models.GetOpenEntry(ctx, worker.ID)
	if err != nil || open == nil {
		t.Fatalf("expected open shift before correction: %v", err)
	}
	clockOut := models.MyDateString(open.ClockInAt.Add(9 * time.Hour))
	if _, err := models.UpdateTimeEntry(ctx, open.ID, &models.UpdateTimeEntryInput{
		ClockOutAt: &clockOut,
	}); err != nil {
		t.Fatalf("UpdateTimeEntry: %v", err)
	}

	fromDate, _ := models.ParseDateString(time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"))
	toDate, _ := models.ParseDateString(time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"))
	report, err := reports.BuildPayrollReport(ctx, &reports.PayrollReportInput{
		FromDate: fromDate,
		ToDate:   toDate,
	})
	if err != nil {
		t.Fatalf("BuildPayrollReport: %v", err)
	}

	var row *models.WorkerPayrollSummary
	for _, r := range report.Rows {
		if r.UserId == worker.ID {
			row = r
		}
	}
	if row == nil {
		t.Fatal("worker missing from report roster")
	}
	if row.NoRateSet {
		t.Fatal("worker has a rate; NoRateSet must be false")
	}
	if row.TotalHours < 9 {
		t.Fatalf("expected at least the corrected 9h shift, got %v", row.TotalHours)
	}
	if row.GrossPayCents == 0 {
		t.Fatal("expected non-zero gross pay")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("timeclock-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("timeclock-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=timeclock_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
