package termatlas

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/termatlas/backend"
	"github.com/gogpu/termatlas/render"
	"github.com/gogpu/termatlas/text"
)

type stubBackend struct {
	name       string
	initErr    error
	inited     bool
	rendered   int
	released   int
	closed     bool
	continuous bool
	font       *text.FontSource
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Init(render.DeviceHandle) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.inited = true
	return nil
}
func (s *stubBackend) Render(*render.Payload) error   { s.rendered++; return nil }
func (s *stubBackend) ReleaseResources()              { s.released++ }
func (s *stubBackend) RequiresContinuousRedraw() bool { return s.continuous }
func (s *stubBackend) Close()                         { s.closed = true }
func (s *stubBackend) SetFont(f *text.FontSource)     { s.font = f }

func registerStub(t *testing.T, name string) *stubBackend {
	t.Helper()
	sb := &stubBackend{name: name}
	backend.Register(name, func() backend.Renderer { return sb })
	t.Cleanup(func() { backend.Unregister(name) })
	return sb
}

func TestNewSelectsNamedBackend(t *testing.T) {
	sb := registerStub(t, "stub-named")

	eng, err := New(Config{Backend: "stub-named"})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if !sb.inited {
		t.Error("backend not initialized")
	}
	if eng.Backend() != "stub-named" {
		t.Errorf("Backend() = %q", eng.Backend())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "does-not-exist"})
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("err = %v, want ErrNoBackend", err)
	}
}

func TestNewInitFailureIsFatal(t *testing.T) {
	sb := &stubBackend{name: "stub-failing", initErr: errors.New("boom")}
	backend.Register("stub-failing", func() backend.Renderer { return sb })
	defer backend.Unregister("stub-failing")

	_, err := New(Config{Backend: "stub-failing"})
	if err == nil {
		t.Fatal("New succeeded despite init failure")
	}
	if !sb.closed {
		t.Error("failed backend was not closed")
	}
}

func TestEngineRenderDelegates(t *testing.T) {
	sb := registerStub(t, "stub-render")

	eng, err := New(Config{Backend: "stub-render"})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if err := eng.Render(&render.Payload{}); err != nil {
		t.Fatal(err)
	}
	if sb.rendered != 1 {
		t.Errorf("rendered = %d, want 1", sb.rendered)
	}

	eng.ReleaseResources()
	if sb.released != 1 {
		t.Errorf("released = %d, want 1", sb.released)
	}
}

func TestEngineClosed(t *testing.T) {
	registerStub(t, "stub-close")

	eng, err := New(Config{Backend: "stub-close"})
	if err != nil {
		t.Fatal(err)
	}
	eng.Close()

	if err := eng.Render(&render.Payload{}); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("Render after Close = %v, want ErrEngineClosed", err)
	}
	if eng.RequiresContinuousRedraw() {
		t.Error("closed engine requests redraw")
	}
	eng.Close() // idempotent
}

func TestEngineContinuousRedrawPassthrough(t *testing.T) {
	sb := registerStub(t, "stub-redraw")
	sb.continuous = true

	eng, err := New(Config{Backend: "stub-redraw"})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if !eng.RequiresContinuousRedraw() {
		t.Error("continuous redraw not passed through")
	}
}

func TestNewRejectsUnparsableFont(t *testing.T) {
	sb := registerStub(t, "stub-badfont")

	_, err := New(Config{Backend: "stub-badfont", FontData: []byte("not a font")})
	if err == nil {
		t.Fatal("New accepted garbage font data")
	}
	if sb.inited {
		t.Error("backend initialized despite font failure")
	}
}

func TestLoadFontFileSync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "font.bin")
	want := []byte("0123456789abcdef")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := loadFontFile(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("loaded %q, want %q", got, want)
	}
}

func TestLoadFontFileAsync(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "font.bin")
	want := bytes.Repeat([]byte("xy"), 4096)
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := loadFontFile(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("async load returned wrong bytes")
	}
}

func TestLoadFontFileMissing(t *testing.T) {
	if _, err := loadFontFile(filepath.Join(t.TempDir(), "nope.ttf"), false); err == nil {
		t.Fatal("missing file load succeeded")
	}
}
