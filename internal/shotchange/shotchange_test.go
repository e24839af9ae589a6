package shotchange

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mgpai22/subqc/internal/timecode"
)

func TestNewSortsAndComputesFrames(t *testing.T) {
	idx := New([]float64{40, 10, -1, 20}, 24)
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}
	if got := idx.Times(); !reflect.DeepEqual(got, []float64{10, 20, 40}) {
		t.Errorf("Times() = %v", got)
	}
	if idx.HalfSecond() != 12 {
		t.Errorf("HalfSecond() = %d, want 12", idx.HalfSecond())
	}
	if got := idx.Frame(1, timecode.Snapped); got != 480 {
		t.Errorf("Frame(1) = %d, want 480", got)
	}

	if New(nil, 23.976).HalfSecond() != 11 {
		t.Error("half second at 23.976 should round down to 11")
	}
}

func TestNearest(t *testing.T) {
	idx := New([]float64{10, 20, 40}, 24)

	tests := []struct {
		name  string
		frame int
		end   bool
		gaps  bool
		want  int
		found bool
	}{
		{"inside band of middle", 489, false, false, 1, true},
		{"on first", 240, false, false, 0, true},
		{"start half second before", 228, false, false, -1, false},
		{"end half second before", 228, true, false, 0, true},
		{"gap mode reaches further back", 253, false, true, 0, true},
		{"far away", 100, false, false, -1, false},
		{"index zero counts as found", 235, false, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Nearest(tt.frame, tt.end, tt.gaps)
			if got != tt.want || ok != tt.found {
				t.Errorf("Nearest(%d) = %d, %v; want %d, %v", tt.frame, got, ok, tt.want, tt.found)
			}
		})
	}

	var empty *Index
	if _, ok := empty.Nearest(10, false, false); ok {
		t.Error("nil index should find nothing")
	}
}

func TestNear(t *testing.T) {
	t.Run("start after shot change", func(t *testing.T) {
		p, ok := New([]float64{10}, 24).Around(243, false, false)
		if !ok {
			t.Fatal("expected a shot change")
		}
		if !reflect.DeepEqual(p.Hits, []Hit{{Shot: 0, Diff: 3}}) {
			t.Errorf("Hits = %v", p.Hits)
		}
		if !p.Errors() {
			t.Error("expected errors")
		}
	})

	t.Run("end two frames before is correct", func(t *testing.T) {
		p, _ := New([]float64{10}, 24).Around(238, true, false)
		if len(p.Hits) != 0 || !p.OnRight {
			t.Errorf("got %+v", p)
		}
	})

	t.Run("end on shot change", func(t *testing.T) {
		p, _ := New([]float64{10}, 24).Around(240, true, false)
		if !reflect.DeepEqual(p.Hits, []Hit{{Shot: 0, Diff: 0}}) {
			t.Errorf("Hits = %v", p.Hits)
		}
	})

	t.Run("correct placement downgrades to warning", func(t *testing.T) {
		p, _ := New([]float64{10, 10.25}, 24).Around(240, false, false)
		if !reflect.DeepEqual(p.Hits, []Hit{{Shot: 1, Diff: -6}}) {
			t.Errorf("Hits = %v", p.Hits)
		}
		if !p.OnRight || p.Errors() {
			t.Errorf("expected warning, got %+v", p)
		}
	})

	t.Run("walks back then forward", func(t *testing.T) {
		idx := New([]float64{9, 10, 10.2}, 24)
		p := idx.Near(1, 243, false, false)
		want := []Hit{{Shot: 1, Diff: 3}, {Shot: 2, Diff: -1}}
		if !reflect.DeepEqual(p.Hits, want) {
			t.Errorf("Hits = %v, want %v", p.Hits, want)
		}
	})

	t.Run("gap mode near list", func(t *testing.T) {
		p, ok := New([]float64{10}, 24).Around(252, true, true)
		if !ok {
			t.Fatal("expected a shot change")
		}
		if !reflect.DeepEqual(p.NearList, []int{0}) || len(p.Hits) != 0 {
			t.Errorf("got %+v", p)
		}
	})

	t.Run("last index does not overrun", func(t *testing.T) {
		idx := New([]float64{5, 10}, 24)
		p := idx.Near(1, 241, false, false)
		if len(p.Hits) != 1 {
			t.Errorf("Hits = %v", p.Hits)
		}
	})
}

func TestReadWrite(t *testing.T) {
	in := "\ufeff1.5\n\n2.041667\r\n10\n"
	times, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(times, []float64{1.5, 2.041667, 10}) {
		t.Fatalf("Read() = %v", times)
	}

	path := filepath.Join(t.TempDir(), "sub", FileName("abc"))
	if err := WriteFile(path, times); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1.5\n2.041667\n10\n" {
		t.Errorf("file = %q", data)
	}

	if _, err := Read(strings.NewReader("1.0\nabc\n")); err == nil {
		t.Error("expected error for non-numeric line")
	}
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache", "shots.db"))
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}
	defer c.Close()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	if err := c.Put(ctx, "h1", "a.mp4", []float64{1, 2.5}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Put(ctx, "h1", "a.mp4", []float64{3}); err != nil {
		t.Fatalf("Put() replace error = %v", err)
	}
	got, ok, err := c.Get(ctx, "h1")
	if err != nil || !ok || !reflect.DeepEqual(got, []float64{3}) {
		t.Fatalf("Get(h1) = %v, %v, %v", got, ok, err)
	}

	if err := c.Delete(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "h1"); ok {
		t.Error("entry should be gone")
	}
}

func TestStoreLoadOrGenerate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := OpenCache(filepath.Join(dir, "shots.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	s := &Store{Dir: filepath.Join(dir, "scenes"), Cache: cache}

	if _, err := s.Load(ctx, "h"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}

	calls := 0
	gen := func(context.Context) ([]float64, error) {
		calls++
		return []float64{4, 8}, nil
	}

	for i := 0; i < 2; i++ {
		times, err := s.LoadOrGenerate(ctx, "h", "video.mp4", gen)
		if err != nil {
			t.Fatalf("LoadOrGenerate() error = %v", err)
		}
		if !reflect.DeepEqual(times, []float64{4, 8}) {
			t.Fatalf("times = %v", times)
		}
	}
	if calls != 1 {
		t.Errorf("generate called %d times, want 1", calls)
	}
	if _, err := os.Stat(s.Path("h")); err != nil {
		t.Errorf("scenechanges file missing: %v", err)
	}

	// a file dropped into the directory is picked up and cached
	if err := WriteFile(s.Path("other"), []float64{1}); err != nil {
		t.Fatal(err)
	}
	if times, err := s.Load(ctx, "other"); err != nil || len(times) != 1 {
		t.Fatalf("Load(other) = %v, %v", times, err)
	}
	if _, ok, _ := cache.Get(ctx, "other"); !ok {
		t.Error("file contents should be cached after load")
	}
}
