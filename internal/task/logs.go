package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskd-io/taskd/pkg/protocol"
)

type logFile struct {
	path    string
	modTime time.Time
}

// recentLogs lists the n most recently modified .log files in dir, newest first.
func recentLogs(dir string, n int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []logFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if len(files) > n {
		files = files[:n]
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

type recentLogsArgs struct {
	LogDirPath     string `json:"log_dir_path"`
	OutputFilePath string `json:"output_file_path"`
	NumFiles       int    `json:"num_files"`
}

func (a recentLogsArgs) Validate() error {
	if a.NumFiles <= 0 {
		return fmt.Errorf("num_files must be positive, got %d", a.NumFiles)
	}
	return requirePaths("log_dir_path", a.LogDirPath, "output_file_path", a.OutputFilePath)
}

func recentLogLinesTask() Task {
	desc := protocol.TaskDescriptor{
		Name:        "recent_log_lines",
		Description: "Write the first line of the N most recent .log files in a directory, most recent first, to an output file.",
		Params: []protocol.ParamSpec{
			str("log_dir_path", "Directory containing .log files"),
			str("output_file_path", "File to write the first lines to"),
			integer("num_files", "How many of the most recent log files to read, e.g. 10"),
		},
	}
	return newHandler(desc, func(_ context.Context, a recentLogsArgs) error {
		paths, err := recentLogs(a.LogDirPath, a.NumFiles)
		if err != nil {
			return fmt.Errorf("recent_log_lines: %w", err)
		}

		var b strings.Builder
		for _, p := range paths {
			line, err := firstLine(p)
			if err != nil {
				return fmt.Errorf("recent_log_lines: %w", err)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		return writeOutput(a.OutputFilePath, []byte(b.String()))
	})
}
