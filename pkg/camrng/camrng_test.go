package camrng

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/teslashibe/go-camrng/internal/config"
	"github.com/teslashibe/go-camrng/pkg/camera"
	"github.com/teslashibe/go-camrng/pkg/moments"
	"github.com/teslashibe/go-camrng/pkg/rng"
	"github.com/teslashibe/go-camrng/pkg/seed"
)

// run invokes Main with a mock camera and returns exit code and outputs.
func run(t *testing.T, opener camera.Opener, args ...string) (int, []string, string) {
	t.Helper()
	t.Setenv(config.EnvDevice, "")
	t.Setenv(config.EnvJournal, "")

	var stdout, stderr bytes.Buffer
	code := Main(args, &stdout, &stderr, opener)

	out := strings.TrimRight(stdout.String(), "\n")
	var lines []string
	if out != "" {
		lines = strings.Split(out, "\n")
	}
	return code, lines, stderr.String()
}

func TestMainDefaults(t *testing.T) {
	m := camera.NewMockOpener(nil)
	code, lines, _ := run(t, m)

	if code != ExitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if len(lines) != 6 {
		t.Fatalf("expected seed line + 5 values, got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "Seed (sha256 int): ") {
		t.Errorf("unexpected seed line %q", lines[0])
	}
	for _, l := range lines[1:] {
		v, err := strconv.ParseInt(l, 10, 64)
		if err != nil {
			t.Fatalf("value line %q is not an integer", l)
		}
		if v < 0 || v >= 1<<32 {
			t.Errorf("value %d outside default bounds", v)
		}
	}
	if m.Reads() != 6 || m.Closes() != 1 {
		t.Errorf("expected 5 warm-up reads + 1 capture and one release, got reads=%d closes=%d", m.Reads(), m.Closes())
	}
}

func TestMainSeedLineMatchesFrame(t *testing.T) {
	frame := camera.PatternFrame(16, 12, 5)
	m := camera.NewMockOpener([]image.Image{frame})

	code, lines, _ := run(t, m, "--count", "0")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	want, err := seed.Derive(frame)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "Seed (sha256 int): "+want.String() {
		t.Errorf("got %v, want only the seed line for %s", lines, want)
	}
}

func TestMainValuesWithinBounds(t *testing.T) {
	code, lines, _ := run(t, camera.NewMockOpener(nil), "--lower", "-7", "--upper", "9", "--count", "200")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if len(lines) != 201 {
		t.Fatalf("expected 201 lines, got %d", len(lines))
	}
	for _, l := range lines[1:] {
		v, _ := strconv.ParseInt(l, 10, 64)
		if v < -7 || v >= 9 {
			t.Fatalf("value %d outside [-7, 9)", v)
		}
	}
}

func TestMainCoinFlipLabels(t *testing.T) {
	code, lines, _ := run(t, camera.NewMockOpener(nil), "--coin-flip", "--count", "50", "--upper", "1000")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	for _, l := range lines[1:] {
		num, label, ok := strings.Cut(l, " -> ")
		if !ok {
			t.Fatalf("line %q has no label", l)
		}
		v, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			t.Fatalf("bad value in %q", l)
		}
		want := "tails"
		if v%2 == 0 {
			want = "heads"
		}
		if label != want {
			t.Errorf("%d labelled %s, want %s", v, label, want)
		}
	}
}

func TestMainInvalidBoundsBeforeCapture(t *testing.T) {
	m := camera.NewMockOpener(nil)
	code, lines, _ := run(t, m, "--upper", "0", "--lower", "0")

	if code != ExitUsage {
		t.Errorf("exit code = %d, want 2", code)
	}
	if m.Opens() != 0 {
		t.Error("camera must not be opened when bounds are invalid")
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "Error: --upper must be greater than --lower") {
		t.Errorf("unexpected output %v", lines)
	}
}

func TestMainDeviceOpenFailure(t *testing.T) {
	m := camera.NewMockOpener(nil, camera.WithOpenError(errors.New("busy")))
	code, lines, _ := run(t, m, "--device", "3")

	if code != ExitFailure {
		t.Errorf("exit code = %d, want 1", code)
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "Error: unable to open camera device 3") {
		t.Errorf("expected only an error line, got %v", lines)
	}
}

func TestMainFrameReadFailure(t *testing.T) {
	m := camera.NewMockOpener(nil, camera.WithReadError(errors.New("no signal")))
	code, lines, _ := run(t, m, "--warmup", "0")

	if code != ExitFailure {
		t.Errorf("exit code = %d, want 1", code)
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "Error: failed to capture a frame") {
		t.Errorf("expected only an error line, got %v", lines)
	}
	if m.Closes() != 1 {
		t.Error("device must be released after a failed read")
	}
}

func TestMainInjectedSeedIsReproducible(t *testing.T) {
	m := camera.NewMockOpener(nil)
	args := []string{"--seed", "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		"--lower", "0", "--upper", "2", "--count", "3"}

	code1, first, _ := run(t, m, args...)
	code2, second, _ := run(t, m, args...)
	if code1 != ExitOK || code2 != ExitOK {
		t.Fatalf("exit codes %d/%d", code1, code2)
	}
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Errorf("runs differ:\n%v\n%v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 lines, got %v", first)
	}
	for _, l := range first[1:] {
		if l != "0" && l != "1" {
			t.Errorf("value %q outside [0, 2)", l)
		}
	}
	if m.Opens() != 0 {
		t.Error("an injected seed must not touch the camera")
	}
}

func TestMainSameFrameSameNumbers(t *testing.T) {
	frame := camera.PatternFrame(10, 10, 42)
	_, a, _ := run(t, camera.NewMockOpener([]image.Image{frame}), "--count", "4")
	_, b, _ := run(t, camera.NewMockOpener([]image.Image{frame}), "--count", "4")
	if strings.Join(a, "\n") != strings.Join(b, "\n") {
		t.Errorf("identical frames gave different output:\n%v\n%v", a, b)
	}
}

func TestMainSavesFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "frame.png")
	code, _, _ := run(t, camera.NewMockOpener(nil), "--save", path, "--count", "1")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("frame not saved: %v", err)
	}
}

func TestMainSaveFrameDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())
	code, _, _ := run(t, camera.NewMockOpener(nil), "--save-frame", "--count", "1")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(camera.DefaultSavePath); err != nil {
		t.Errorf("expected %s: %v", camera.DefaultSavePath, err)
	}
}

func TestMainSaveFailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, []byte("x"), 0644)

	code, lines, stderr := run(t, camera.NewMockOpener(nil), "--save", filepath.Join(blocker, "frame.png"), "--count", "2")
	if code != ExitOK {
		t.Errorf("save failure must not fail the run, exit code = %d", code)
	}
	if len(lines) != 3 {
		t.Errorf("expected values despite save failure, got %v", lines)
	}
	if !strings.Contains(stderr, "Warning: failed to save frame") {
		t.Errorf("expected warning on stderr, got %q", stderr)
	}
}

func TestMainJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.json")
	code, lines, _ := run(t, camera.NewMockOpener(nil), "--journal", path, "--count", "2", "--coin-flip")
	if code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}

	store, err := moments.NewJSONStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	list, _ := store.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 moment, got %d", len(list))
	}
	m := list[0]
	if m.Mode != moments.ModeCoinFlip {
		t.Errorf("mode = %s", m.Mode)
	}
	if m.ResultValue != lines[1]+", "+lines[2] {
		t.Errorf("result value %q does not match output %v", m.ResultValue, lines[1:])
	}
	if "Seed (sha256 int): "+m.Seed != lines[0] {
		t.Errorf("journal seed %s does not match %q", m.Seed, lines[0])
	}
}

func TestMainFlagErrors(t *testing.T) {
	code, lines, stderr := run(t, camera.NewMockOpener(nil), "--count", "lots")
	if code != ExitUsage {
		t.Errorf("exit code = %d, want 2", code)
	}
	if len(lines) != 0 {
		t.Errorf("stdout should be empty, got %v", lines)
	}
	if stderr == "" {
		t.Error("flag package should report the error on stderr")
	}

	if code, _, _ := run(t, camera.NewMockOpener(nil), "-h"); code != ExitOK {
		t.Errorf("-h exit code = %d, want 0", code)
	}
}

type memStore struct {
	added []*moments.Moment
	err   error
}

func (s *memStore) Add(m *moments.Moment) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, m)
	return nil
}
func (s *memStore) Get(string) (*moments.Moment, error)   { return nil, moments.ErrNotFound }
func (s *memStore) List() ([]*moments.Moment, error)      { return s.added, nil }
func (s *memStore) UpdateAnnotation(string, string) error { return nil }
func (s *memStore) Count() int                            { return len(s.added) }

func TestRunWithStore(t *testing.T) {
	cfg := config.Default()
	cfg.Count = 3

	var out, errOut bytes.Buffer
	store := &memStore{}
	app := New(cfg,
		WithOpener(camera.NewMockOpener(nil)),
		WithOutput(&out),
		WithErrOutput(&errOut),
		WithStore(store),
	)
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.added) != 1 || store.added[0].Mode != moments.ModeNumbers {
		t.Errorf("expected one numbers moment, got %+v", store.added)
	}

	store.err = errors.New("disk full")
	out.Reset()
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("journal failure must not fail the run: %v", err)
	}
	if !strings.Contains(errOut.String(), "Warning: failed to record moment") {
		t.Errorf("expected journal warning, got %q", errOut.String())
	}
}

func TestRunWithoutOpener(t *testing.T) {
	var out bytes.Buffer
	err := New(config.Default(), WithOutput(&out)).Run(context.Background())
	if !errors.Is(err, ErrNoOpener) {
		t.Errorf("expected ErrNoOpener, got %v", err)
	}
	if out.Len() != 0 {
		t.Error("nothing should be printed without a seed")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{rng.CheckBounds(1, 1), ExitUsage},
		{config.ErrUsage, ExitUsage},
		{&camera.CaptureError{Kind: camera.ErrDeviceUnavailable}, ExitFailure},
		{&seed.EncodingError{Err: errors.New("bad")}, ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMainRunsWithUnusualCameraRequests(t *testing.T) {
	for _, tc := range []struct {
		args  []string
		lines int
	}{
		{[]string{"--width", "-1"}, 6},
		{[]string{"--width", "10000", "--height", "9000"}, 6},
		{[]string{"--device", "-1"}, 6},
		{[]string{"--count", "-1"}, 1},
	} {
		code, lines, _ := run(t, camera.NewMockOpener(nil), tc.args...)
		if code != ExitOK {
			t.Errorf("%v: exit code = %d, want 0 (stdout %v)", tc.args, code, lines)
			continue
		}
		if len(lines) != tc.lines || !strings.HasPrefix(lines[0], "Seed (sha256 int): ") {
			t.Errorf("%v: expected %d lines starting with the seed, got %v", tc.args, tc.lines, lines)
		}
	}
}
