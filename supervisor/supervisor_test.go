package supervisor

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestHelperProcess is not a test. It is the hook helper the other tests
// start, by re-running the test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("WLW_TEST_HELPER") != "1" {
		return
	}

	out, err := os.OpenFile(os.Getenv("WLW_TEST_OUT"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		os.Exit(2)
	}
	_, _ = out.WriteString(strings.Join([]string{os.Getenv(EnvPID), os.Getenv(EnvPipe), os.Getenv(EnvToken)}, " ") + "\n")
	_ = out.Close()

	if os.Getenv("WLW_TEST_MODE") == "exit" {
		os.Exit(1)
	}
	time.Sleep(time.Minute)
	os.Exit(0)
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func helper(t *testing.T, mode string) (Helper, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "helper.out")
	return Helper{
		Name: "test-helper",
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$"},
		Env:  []string{"WLW_TEST_HELPER=1", "WLW_TEST_OUT=" + out, "WLW_TEST_MODE=" + mode},
	}, out
}

func lines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

func run(t *testing.T, s *Supervisor) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return func() {
		stop()
		require.NoError(t, <-done)
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrNoHelpers)

	_, err = New(Config{Helpers: []Helper{{Name: "x"}}})
	require.Error(t, err)

	s, err := New(Config{Helpers: []Helper{{Path: "/bin/true"}}})
	require.NoError(t, err)
	require.NotEmpty(t, s.Token())
	require.Equal(t, "/bin/true", s.Status()[0].Name)
}

func TestSupervisorPassesEnvironment(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, out := helper(t, "wait")
	s, err := New(Config{
		Helpers:      []Helper{h},
		PipeName:     "wlw_server_test",
		Token:        "session-token",
		PollInterval: 10 * time.Millisecond,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	cancel := run(t, s)
	require.Eventually(t, func() bool { return len(lines(out)) == 1 }, 10*time.Second, 10*time.Millisecond)

	require.Equal(t, []string{strconv.Itoa(os.Getpid()) + " wlw_server_test session-token"}, lines(out))

	st := s.Status()
	require.Len(t, st, 1)
	require.True(t, st[0].Running)
	require.NotZero(t, st[0].PID)
	require.Equal(t, 1, st[0].Starts)

	cancel()

	st = s.Status()
	require.False(t, st[0].Running)
	require.Zero(t, st[0].PID)
	require.Len(t, lines(out), 1)
}

func TestSupervisorRestartsExitedHelper(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, out := helper(t, "exit")
	s, err := New(Config{
		Helpers:      []Helper{h},
		PollInterval: 10 * time.Millisecond,
		MinBackoff:   10 * time.Millisecond,
		MaxBackoff:   50 * time.Millisecond,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	cancel := run(t, s)
	require.Eventually(t, func() bool { return len(lines(out)) >= 3 }, 20*time.Second, 10*time.Millisecond)
	cancel()

	st := s.Status()[0]
	require.GreaterOrEqual(t, st.Starts, 3)
	require.Error(t, st.LastExit)
}

func TestSupervisorKeepsRetryingMissingBinary(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := New(Config{
		Helpers:      []Helper{{Name: "missing", Path: filepath.Join(t.TempDir(), "no-such-helper")}},
		PollInterval: 10 * time.Millisecond,
		MinBackoff:   10 * time.Millisecond,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)

	cancel := run(t, s)
	require.Eventually(t, func() bool { return s.Status()[0].LastExit != nil }, 5*time.Second, 10*time.Millisecond)
	cancel()

	st := s.Status()[0]
	require.False(t, st.Running)
	require.Zero(t, st.Starts)
}
