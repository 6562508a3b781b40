package task

import "context"

// DefaultDatagenScript is the data generation script run by run_datagen when
// no other script is configured.
const DefaultDatagenScript = "https://raw.githubusercontent.com/sanand0/tools-in-data-science-public/tds-2025-01/project-1/datagen.py"

// ImageReader answers a text prompt about an image.
type ImageReader interface {
	ReadImageText(ctx context.Context, prompt, mimeType string, image []byte) (string, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Deps carries the collaborators some tasks need.
type Deps struct {
	Commands      CommandRunner
	Vision        ImageReader
	Embedder      Embedder
	DatagenScript string
}

// Builtin returns the ten tasks in catalog order.
func Builtin(d Deps) []Task {
	if d.Commands == nil {
		d.Commands = &ExecRunner{}
	}
	if d.DatagenScript == "" {
		d.DatagenScript = DefaultDatagenScript
	}
	return []Task{
		datagenTask(d.Commands, d.DatagenScript),
		formatMarkdownTask(d.Commands),
		countWeekdaysTask(),
		sortContactsTask(),
		recentLogLinesTask(),
		indexMarkdownTask(),
		extractSenderEmailTask(),
		extractCardNumberTask(d.Vision),
		similarCommentsTask(d.Embedder),
		ticketSalesTask(),
	}
}
