package task

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskd-io/taskd/pkg/protocol"
)

const cardPrompt = "This image shows a long number printed on a card. " +
	"Reply with only that number and nothing else."

// cardDigits keeps the digits of the model's answer and checks the length
// of a payment card number.
func cardDigits(answer string) (string, error) {
	var b strings.Builder
	for _, r := range answer {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 12 || len(digits) > 19 {
		return "", fmt.Errorf("no card number in model answer %q", answer)
	}
	return digits, nil
}

func imageType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		return t
	}
	return http.DetectContentType(data)
}

type cardArgs struct {
	Filename  string `json:"filename"`
	ImagePath string `json:"image_path"`
}

func (a cardArgs) Validate() error {
	return requirePaths("filename", a.Filename, "image_path", a.ImagePath)
}

func extractCardNumberTask(vision ImageReader) Task {
	desc := protocol.TaskDescriptor{
		Name:        "extract_card_number",
		Description: "Extract the credit card number from an image and write it, without spaces, to an output file.",
		Params: []protocol.ParamSpec{
			str("filename", "File to write the card number to"),
			str("image_path", "Image of the card"),
		},
	}
	return newHandler(desc, func(ctx context.Context, a cardArgs) error {
		if vision == nil {
			return errors.New("extract_card_number: no vision model configured")
		}
		img, err := os.ReadFile(a.ImagePath)
		if err != nil {
			return fmt.Errorf("extract_card_number: %w", err)
		}
		answer, err := vision.ReadImageText(ctx, cardPrompt, imageType(a.ImagePath, img), img)
		if err != nil {
			return fmt.Errorf("extract_card_number: %w", err)
		}
		digits, err := cardDigits(answer)
		if err != nil {
			return fmt.Errorf("extract_card_number: %w", err)
		}
		return writeOutput(a.Filename, []byte(digits))
	})
}
