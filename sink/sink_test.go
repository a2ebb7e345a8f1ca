package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{name: "valid simple path", path: "pet/pet.dart"},
		{name: "valid nested path", path: "a/b/c/animal.dart"},
		{name: "valid single file", path: "shape.dart"},
		{name: "empty path", path: "", wantErr: true, errMsg: "empty"},
		{name: "absolute path", path: "/absolute/pet.dart", wantErr: true, errMsg: "absolute paths not allowed"},
		{name: "path traversal", path: "foo/../pet.dart", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "leading traversal", path: "../pet.dart", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "bare dotdot", path: "..", wantErr: true, errMsg: "path traversal not allowed"},
		{name: "current dir prefix", path: "./pet.dart", wantErr: true, errMsg: "not clean"},
		{name: "double slashes", path: "foo//pet.dart", wantErr: true, errMsg: "not clean"},
		{name: "trailing slash", path: "foo/bar/", wantErr: true, errMsg: "not clean"},
		{name: "windows drive", path: "C:/Windows/pet.dart", wantErr: true, errMsg: "absolute paths not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidatePath() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	t.Run("write and read", func(t *testing.T) {
		s := NewMemorySink()
		ctx := context.Background()

		if err := s.WriteFile(ctx, "pet.dart", []byte("class Pet {}")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := s.Get("pet.dart"); string(got) != "class Pet {}" {
			t.Errorf("Get() = %q, want %q", got, "class Pet {}")
		}
	})

	t.Run("missing file returns nil", func(t *testing.T) {
		s := NewMemorySink()
		if got := s.Get("nope.dart"); got != nil {
			t.Errorf("Get() = %v, want nil", got)
		}
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		s := NewMemorySink()
		ctx := context.Background()

		if err := s.WriteFile(ctx, "pet.dart", []byte("first")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if err := s.WriteFile(ctx, "pet.dart", []byte("second")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := s.Get("pet.dart"); string(got) != "second" {
			t.Errorf("Get() = %q, want %q", got, "second")
		}
	})

	t.Run("Files and Get return copies", func(t *testing.T) {
		s := NewMemorySink()
		ctx := context.Background()

		if err := s.WriteFile(ctx, "a.dart", []byte("aaa")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		files := s.Files()
		files["b.dart"] = []byte("bbb")
		if len(s.Files()) != 1 {
			t.Errorf("Files() length = %d after external modification, want 1", len(s.Files()))
		}

		got := s.Get("a.dart")
		got[0] = 'X'
		if string(s.Get("a.dart")) != "aaa" {
			t.Error("Get() modification leaked into store")
		}
	})

	t.Run("Reset clears files", func(t *testing.T) {
		s := NewMemorySink()
		ctx := context.Background()

		if err := s.WriteFile(ctx, "a.dart", []byte("aaa")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		s.Reset()
		if len(s.Files()) != 0 {
			t.Errorf("Files() after Reset() length = %d, want 0", len(s.Files()))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := NewMemorySink()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.WriteFile(ctx, "pet.dart", []byte("x")); err == nil {
			t.Error("WriteFile() with cancelled context should return error")
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(context.Background(), "../escape.dart", []byte("x")); err == nil {
			t.Error("WriteFile() with invalid path should return error")
		}
	})
}

func TestMemorySink_Concurrent(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			path := "out/file" + string(rune('0'+id%10)) + ".dart"
			if err := s.WriteFile(ctx, path, []byte("content")); err != nil {
				t.Errorf("WriteFile() error = %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Files()
			_ = s.Get("out/file0.dart")
		}()
	}
	wg.Wait()

	if len(s.Files()) == 0 {
		t.Error("no files written during concurrent test")
	}
}

func TestFilesystemSink(t *testing.T) {
	t.Run("write and read back", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)

		if err := s.WriteFile(context.Background(), "pet.dart", []byte("class Pet {}")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := os.ReadFile(filepath.Join(tmpDir, "pet.dart"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(got) != "class Pet {}" {
			t.Errorf("ReadFile() = %q, want %q", got, "class Pet {}")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)

		if err := s.WriteFile(context.Background(), "a/b/pet.dart", []byte("nested")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := os.ReadFile(filepath.Join(tmpDir, "a", "b", "pet.dart"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(got) != "nested" {
			t.Errorf("ReadFile() = %q, want %q", got, "nested")
		}
	})

	t.Run("respects file mode", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)
		s.Mode = 0600

		if err := s.WriteFile(context.Background(), "pet.dart", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		info, err := os.Stat(filepath.Join(tmpDir, "pet.dart"))
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if mode := info.Mode().Perm(); mode != 0600 {
			t.Errorf("file mode = %o, want %o", mode, 0600)
		}
	})

	t.Run("Overwrite=false rejects existing file", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)
		s.Overwrite = false

		if err := s.WriteFile(context.Background(), "pet.dart", []byte("first")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		err := s.WriteFile(context.Background(), "pet.dart", []byte("second"))
		if err == nil {
			t.Fatal("WriteFile() with Overwrite=false should return error for existing file")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("WriteFile() error = %v, want error containing 'already exists'", err)
		}
	})

	t.Run("rejects escape from root", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)

		for _, path := range []string{"/etc/passwd", "../escape.dart", "a/../../escape.dart"} {
			if err := s.WriteFile(context.Background(), path, []byte("x")); err == nil {
				t.Errorf("WriteFile(%q) should return error", path)
			}
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)

		if err := s.WriteFile(context.Background(), "pet.dart", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		entries, err := os.ReadDir(tmpDir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".morphgen-") || strings.HasSuffix(entry.Name(), ".tmp") {
				t.Errorf("found temp file after write: %s", entry.Name())
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		tmpDir := t.TempDir()
		s := NewFilesystemSink(tmpDir)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.WriteFile(ctx, "pet.dart", []byte("x")); err == nil {
			t.Error("WriteFile() with cancelled context should return error")
		}
	})
}

func TestFilesystemSink_Concurrent(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewFilesystemSink(tmpDir)
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			path := "out/file" + string(rune('0'+id%10)) + ".dart"
			if err := s.WriteFile(ctx, path, []byte("content")); err != nil {
				t.Errorf("WriteFile() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(tmpDir, "out"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) == 0 {
		t.Error("no files written during concurrent test")
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".morphgen-") {
			t.Errorf("found temp file after concurrent writes: %s", entry.Name())
		}
	}
}
