package task

import (
	"context"
	"fmt"
	"net/mail"
	"os"
	"regexp"

	"github.com/taskd-io/taskd/pkg/protocol"
)

type datagenArgs struct {
	Email string `json:"email"`
}

func (a datagenArgs) Validate() error {
	addr, err := mail.ParseAddress(a.Email)
	if err != nil || addr.Address != a.Email {
		return fmt.Errorf("email %q is not a bare address", a.Email)
	}
	return nil
}

func datagenTask(runner CommandRunner, script string) Task {
	desc := protocol.TaskDescriptor{
		Name:        "run_datagen",
		Description: "Run the datagen.py data generation script with the user's email as its only argument.",
		Params:      []protocol.ParamSpec{str("email", "Email address passed to the script")},
	}
	return newHandler(desc, func(ctx context.Context, a datagenArgs) error {
		if _, err := runner.Run(ctx, "uv", "run", script, a.Email); err != nil {
			return fmt.Errorf("run_datagen: %w", err)
		}
		return nil
	})
}

type prettierArgs struct {
	PrettierVersion string `json:"prettier_version"`
	Filename        string `json:"filename"`
}

var versionRe = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.+~^-]*$`)

func (a prettierArgs) Validate() error {
	if !versionRe.MatchString(a.PrettierVersion) {
		return fmt.Errorf("prettier_version %q is not a version", a.PrettierVersion)
	}
	return requirePaths("filename", a.Filename)
}

func formatMarkdownTask(runner CommandRunner) Task {
	desc := protocol.TaskDescriptor{
		Name:        "format_markdown",
		Description: "Format a markdown file in place using a specific version of Prettier.",
		Params: []protocol.ParamSpec{
			str("prettier_version", "Prettier version, e.g. 3.4.2"),
			str("filename", "Markdown file to format in place"),
		},
	}
	return newHandler(desc, func(ctx context.Context, a prettierArgs) error {
		if _, err := os.Stat(a.Filename); err != nil {
			return fmt.Errorf("format_markdown: %w", err)
		}
		if _, err := runner.Run(ctx, "npx", "--yes", "prettier@"+a.PrettierVersion, "--write", a.Filename); err != nil {
			return fmt.Errorf("format_markdown: %w", err)
		}
		return nil
	})
}
