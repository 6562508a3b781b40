package task

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// firstH1 returns the text of the first ATX level-1 heading outside fenced
// code blocks, or "" if there is none.
func firstH1(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	inFence := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:]), nil
		}
	}
	return "", sc.Err()
}

// indexTitles maps each .md file under root (slash-separated, relative to
// root) to its first H1 title.
func indexTitles(root string) (map[string]string, error) {
	index := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		title, err := firstH1(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if title == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		index[filepath.ToSlash(rel)] = title
		return nil
	})
	return index, err
}

type indexArgs struct {
	DocDirPath     string `json:"doc_dir_path"`
	OutputFilePath string `json:"output_file_path"`
}

func (a indexArgs) Validate() error {
	return requirePaths("doc_dir_path", a.DocDirPath, "output_file_path", a.OutputFilePath)
}

func indexMarkdownTask() Task {
	desc := protocol.TaskDescriptor{
		Name:        "index_markdown",
		Description: "Index all Markdown files in a directory by their first H1 title and write the index as a JSON object mapping relative file path to title.",
		Params: []protocol.ParamSpec{
			str("doc_dir_path", "Directory to search for .md files"),
			str("output_file_path", "JSON file to write the index to"),
		},
	}
	return newHandler(desc, func(_ context.Context, a indexArgs) error {
		index, err := indexTitles(a.DocDirPath)
		if err != nil {
			return fmt.Errorf("index_markdown: %w", err)
		}
		out, err := json.Marshal(index)
		if err != nil {
			return fmt.Errorf("index_markdown: %w", err)
		}
		return writeOutput(a.OutputFilePath, out)
	})
}
