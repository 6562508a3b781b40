package task

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"
	"regexp"
	"strings"

	"github.com/taskd-io/taskd/pkg/protocol"
)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// senderAddress returns the bare address from the message's From header.
// Text that is not a well-formed message is scanned for a From: line.
func senderAddress(data []byte) (string, error) {
	if msg, err := mail.ReadMessage(bytes.NewReader(data)); err == nil {
		if from := msg.Header.Get("From"); from != "" {
			if addr, err := mail.ParseAddress(from); err == nil {
				return addr.Address, nil
			}
			if m := emailRe.FindString(from); m != "" {
				return m, nil
			}
		}
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) < 5 || !strings.EqualFold(line[:5], "from:") {
			continue
		}
		if m := emailRe.FindString(line); m != "" {
			return m, nil
		}
	}
	return "", fmt.Errorf("no sender address found")
}

type senderArgs struct {
	Filename   string `json:"filename"`
	OutputFile string `json:"output_file"`
}

func (a senderArgs) Validate() error {
	return requirePaths("filename", a.Filename, "output_file", a.OutputFile)
}

func extractSenderEmailTask() Task {
	desc := protocol.TaskDescriptor{
		Name:        "extract_sender_email",
		Description: "Extract the sender's email address from an email message stored in a text file and write just the address to an output file.",
		Params: []protocol.ParamSpec{
			str("filename", "Text file containing the email message"),
			str("output_file", "File to write the sender address to"),
		},
	}
	return newHandler(desc, func(_ context.Context, a senderArgs) error {
		data, err := os.ReadFile(a.Filename)
		if err != nil {
			return fmt.Errorf("extract_sender_email: %w", err)
		}
		addr, err := senderAddress(data)
		if err != nil {
			return fmt.Errorf("extract_sender_email: %s: %w", a.Filename, err)
		}
		return writeOutput(a.OutputFile, []byte(addr))
	})
}
