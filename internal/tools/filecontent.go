package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileContentInput are the arguments of the list_file_content tool.
type FileContentInput struct {
	Path string `json:"file_path"`
}

// FileContentOutput holds the file's current content.
type FileContentOutput struct {
	Path    string `json:"file_path"`
	Content string `json:"content"`
}

// FileReader reads files live from the codebase root. Content may diverge
// from what was indexed if the source changed since the last build; that
// staleness window is accepted, not a defect.
type FileReader struct {
	root string
}

// NewFileReader creates a reader confined to root.
func NewFileReader(root string) *FileReader {
	return &FileReader{root: root}
}

// Read returns the file's current content. Paths are interpreted relative
// to the codebase root and may not escape it. A missing file is an ordinary
// error observation for the agent.
func (f *FileReader) Read(_ context.Context, in FileContentInput) (*FileContentOutput, error) {
	if in.Path == "" {
		return nil, fmt.Errorf("%w: file_path cannot be empty", ErrInvalidArgument)
	}

	rel := filepath.Clean(in.Path)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: path %q escapes the codebase root", ErrInvalidArgument, in.Path)
	}

	content, err := os.ReadFile(filepath.Join(f.root, rel))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", in.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in.Path, err)
	}
	return &FileContentOutput{Path: rel, Content: string(content)}, nil
}

// FileContentSpec describes the list_file_content tool to the model.
func FileContentSpec() Spec {
	return Spec{
		Name:        NameListFileContent,
		Description: "Get the full current content of a file. Use this to see the complete code of a file found in search results.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file, relative to the codebase root",
				},
			},
			"required": []string{"file_path"},
		},
	}
}

// RegisterFileContent wires the file reader into a registry.
func RegisterFileContent(r *Registry, f *FileReader) {
	r.Register(FileContentSpec(), func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
		var in FileContentInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		out, err := f.Read(ctx, in)
		if err != nil {
			return nil, err
		}
		return json.Marshal(out)
	})
}
