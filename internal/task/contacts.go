package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/taskd-io/taskd/pkg/protocol"
)

type contactName struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// sortContacts orders a JSON array of contact objects by last_name, then
// first_name. Objects are re-emitted compacted with their field order intact.
func sortContacts(data []byte) ([]byte, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("contacts must be a JSON array: %w", err)
	}

	names := make([]contactName, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &names[i]); err != nil {
			return nil, fmt.Errorf("contact %d: %w", i, err)
		}
	}

	idx := make([]int, len(raw))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		na, nb := names[idx[a]], names[idx[b]]
		if na.LastName != nb.LastName {
			return na.LastName < nb.LastName
		}
		return na.FirstName < nb.FirstName
	})

	sorted := make([]json.RawMessage, len(raw))
	for i, j := range idx {
		sorted[i] = raw[j]
	}
	return json.Marshal(sorted)
}

type contactsArgs struct {
	Filename   string `json:"filename"`
	Targetfile string `json:"targetfile"`
}

func (a contactsArgs) Validate() error {
	return requirePaths("filename", a.Filename, "targetfile", a.Targetfile)
}

func sortContactsTask() Task {
	desc := protocol.TaskDescriptor{
		Name:        "sort_contacts",
		Description: "Sort a JSON array of contacts by last_name, then first_name, and write the result to a target file.",
		Params: []protocol.ParamSpec{
			str("filename", "JSON file with the contacts array"),
			str("targetfile", "File to write the sorted contacts to"),
		},
	}
	return newHandler(desc, func(_ context.Context, a contactsArgs) error {
		data, err := os.ReadFile(a.Filename)
		if err != nil {
			return fmt.Errorf("sort_contacts: %w", err)
		}
		out, err := sortContacts(data)
		if err != nil {
			return fmt.Errorf("sort_contacts: %s: %w", a.Filename, err)
		}
		return writeOutput(a.Targetfile, out)
	})
}
