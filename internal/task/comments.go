package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/taskd-io/taskd/pkg/protocol"
)

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	length := min(len(a), len(b))
	for i := 0; i < length; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// mostSimilarPair returns the indexes i < j of the closest pair of vectors.
func mostSimilarPair(vecs [][]float32) (int, int) {
	bestI, bestJ, best := 0, 1, math.Inf(-1)
	for i := 0; i < len(vecs); i++ {
		for j := i + 1; j < len(vecs); j++ {
			if sim := cosineSimilarity(vecs[i], vecs[j]); sim > best {
				bestI, bestJ, best = i, j, sim
			}
		}
	}
	return bestI, bestJ
}

type commentsArgs struct {
	Filename       string `json:"filename"`
	OutputFilename string `json:"output_filename"`
}

func (a commentsArgs) Validate() error {
	return requirePaths("filename", a.Filename, "output_filename", a.OutputFilename)
}

func similarCommentsTask(embedder Embedder) Task {
	desc := protocol.TaskDescriptor{
		Name:        "similar_comments",
		Description: "Find the most similar pair of comments in a file (one comment per line) using embeddings and write them, one per line, to an output file.",
		Params: []protocol.ParamSpec{
			str("filename", "File with one comment per line"),
			str("output_filename", "File to write the two most similar comments to"),
		},
	}
	return newHandler(desc, func(ctx context.Context, a commentsArgs) error {
		if embedder == nil {
			return errors.New("similar_comments: no embedding model configured")
		}
		f, err := os.Open(a.Filename)
		if err != nil {
			return fmt.Errorf("similar_comments: %w", err)
		}
		comments, err := readLines(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("similar_comments: %w", err)
		}
		if len(comments) < 2 {
			return fmt.Errorf("similar_comments: %s has %d comment(s), need at least 2", a.Filename, len(comments))
		}

		vecs, err := embedder.Embed(ctx, comments)
		if err != nil {
			return fmt.Errorf("similar_comments: %w", err)
		}
		if len(vecs) != len(comments) {
			return fmt.Errorf("similar_comments: got %d embeddings for %d comments", len(vecs), len(comments))
		}

		i, j := mostSimilarPair(vecs)
		out := strings.Join([]string{comments[i], comments[j]}, "\n") + "\n"
		return writeOutput(a.OutputFilename, []byte(out))
	})
}
