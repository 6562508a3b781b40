package task

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSortContacts(t *testing.T) {
	in := `[
		{"first_name": "Zoe", "last_name": "Adams", "email": "z@example.com"},
		{"first_name": "Amy", "last_name": "Baker", "email": "a@example.com"},
		{"first_name": "Al", "last_name": "Adams", "email": "al@example.com"}
	]`
	out, err := sortContacts([]byte(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []map[string]string
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	order := []string{got[0]["first_name"], got[1]["first_name"], got[2]["first_name"]}
	if strings.Join(order, ",") != "Al,Zoe,Amy" {
		t.Errorf("order = %v", order)
	}
	// Field order of each object is preserved; whitespace is compacted.
	if !strings.HasPrefix(string(out), `[{"first_name":"Al","last_name":"Adams"`) {
		t.Errorf("output = %s", out)
	}
}

func TestSortContacts_NotArray(t *testing.T) {
	if _, err := sortContacts([]byte(`{"a":1}`)); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestSortContactsTask(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "contacts.json")
	out := filepath.Join(dir, "contacts-sorted.json")
	os.WriteFile(in, []byte(`[{"first_name":"B","last_name":"Y"},{"first_name":"A","last_name":"X"}]`), 0o644)

	args, _ := json.Marshal(map[string]any{"filename": in, "targetfile": out})
	if err := sortContactsTask().Run(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != `[{"first_name":"A","last_name":"X"},{"first_name":"B","last_name":"Y"}]` {
		t.Errorf("output = %s", data)
	}
}

func TestRecentLogLinesTask(t *testing.T) {
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	os.MkdirAll(logs, 0o755)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.log", "b.log", "c.log", "d.log"} {
		p := filepath.Join(logs, name)
		os.WriteFile(p, []byte("first "+name+"\nsecond\n"), 0o644)
		mt := base.Add(time.Duration(i) * time.Minute)
		os.Chtimes(p, mt, mt)
	}
	os.WriteFile(filepath.Join(logs, "notes.txt"), []byte("ignored\n"), 0o644)

	out := filepath.Join(dir, "logs-recent.txt")
	args, _ := json.Marshal(map[string]any{"log_dir_path": logs, "output_file_path": out, "num_files": 3})
	if err := recentLogLinesTask().Run(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(out)
	want := "first d.log\nfirst c.log\nfirst b.log\n"
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, string(data))
	}
}

func TestRecentLogLinesTask_FewerFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "only.log"), []byte("one line"), 0o644)
	out := filepath.Join(dir, "out.txt")

	args, _ := json.Marshal(map[string]any{"log_dir_path": dir, "output_file_path": out, "num_files": 10})
	if err := recentLogLinesTask().Run(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "one line\n" {
		t.Errorf("got %q", string(data))
	}
}

func TestRecentLogLinesTask_ZeroFiles(t *testing.T) {
	args := json.RawMessage(`{"log_dir_path":"/x","output_file_path":"/y","num_files":0}`)
	var argErr *ArgumentError
	if err := recentLogLinesTask().Run(context.Background(), args); !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %v", err)
	}
}

func TestFirstH1(t *testing.T) {
	md := "Intro text\n```\n# not a heading\n```\n## Sub\n# Real Title \n# Second\n"
	title, err := firstH1(strings.NewReader(md))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Real Title" {
		t.Errorf("title = %q", title)
	}
}

func TestIndexMarkdownTask(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	os.MkdirAll(filepath.Join(docs, "sub"), 0o755)
	os.WriteFile(filepath.Join(docs, "README.md"), []byte("# Home\ntext\n"), 0o644)
	os.WriteFile(filepath.Join(docs, "sub", "guide.md"), []byte("para\n\n# Guide\n"), 0o644)
	os.WriteFile(filepath.Join(docs, "sub", "empty.md"), []byte("no heading\n"), 0o644)
	os.WriteFile(filepath.Join(docs, "sub", "skip.txt"), []byte("# Not markdown\n"), 0o644)

	out := filepath.Join(docs, "index.json")
	args, _ := json.Marshal(map[string]any{"doc_dir_path": docs, "output_file_path": out})
	if err := indexMarkdownTask().Run(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var index map[string]string
	data, _ := os.ReadFile(out)
	if err := json.Unmarshal(data, &index); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("expected 2 entries, got %v", index)
	}
	if index["README.md"] != "Home" || index["sub/guide.md"] != "Guide" {
		t.Errorf("index = %v", index)
	}
}

func TestIndexMarkdownTask_MissingDir(t *testing.T) {
	dir := t.TempDir()
	args, _ := json.Marshal(map[string]any{
		"doc_dir_path": filepath.Join(dir, "missing"), "output_file_path": filepath.Join(dir, "out.json"),
	})
	if err := indexMarkdownTask().Run(context.Background(), args); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
