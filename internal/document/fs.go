package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// DefaultMaxFileSize skips files larger than 5MB.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// chatSuffix marks JSON files holding chat transcripts.
const chatSuffix = ".chat.json"

// FSOptions configures an FS source.
type FSOptions struct {
	// Include patterns (doublestar syntax, relative to Root). Empty includes everything.
	Include []string
	// Exclude patterns win over Include.
	Exclude []string
	// MaxFileSize skips larger files. 0 uses DefaultMaxFileSize.
	MaxFileSize int64
}

// FS reads notes and chat transcripts from a directory tree.
// Document IDs are slash-separated paths relative to the root.
type FS struct {
	root string
	opts FSOptions
}

var _ Source = (*FS)(nil)

// NewFS creates a source rooted at dir. Patterns are validated up front.
func NewFS(dir string, opts FSOptions) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	for _, p := range append(append([]string(nil), opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, cerrors.ConfigError(fmt.Sprintf("invalid glob pattern %q", p), nil)
		}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &FS{root: abs, opts: opts}, nil
}

// Root returns the absolute root directory.
func (s *FS) Root() string {
	return s.root
}

// List implements Source. Unreadable files are logged and skipped.
func (s *FS) List(ctx context.Context) ([]Document, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, cerrors.IOError("notes directory is not readable", err).WithDetail("root", s.root)
	}

	var docs []Document
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil // Skip entries we can't access
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.Matches(rel) {
			return nil
		}

		doc, err := s.read(rel)
		if err != nil {
			slog.Warn("document_read_failed",
				slog.String("path", rel),
				slog.String("error", err.Error()))
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.root, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Get implements Source.
func (s *FS) Get(_ context.Context, id string) (Document, error) {
	if !s.Matches(id) {
		return Document{}, cerrors.NotFound("document", id)
	}
	doc, err := s.read(id)
	if os.IsNotExist(err) {
		return Document{}, cerrors.NotFound("document", id)
	}
	return doc, err
}

// Matches reports whether the relative slash path is selected by the
// include and exclude patterns.
func (s *FS) Matches(rel string) bool {
	if s.excluded(rel) {
		return false
	}
	if len(s.opts.Include) == 0 {
		return true
	}
	for _, p := range s.opts.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// SkipDir reports whether the relative slash directory path is excluded.
func (s *FS) SkipDir(rel string) bool {
	return s.excluded(strings.TrimSuffix(rel, "/") + "/")
}

func (s *FS) excluded(rel string) bool {
	for _, p := range s.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		// Directory patterns like "**/.git/**" also match the directory itself.
		if strings.HasSuffix(rel, "/") {
			if ok, _ := doublestar.Match(p, rel+"x"); ok {
				return true
			}
		}
	}
	return false
}

func (s *FS) read(rel string) (Document, error) {
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, err
	}
	if info.Size() > s.opts.MaxFileSize {
		return Document{}, fmt.Errorf("file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return Document{}, fmt.Errorf("binary file")
	}

	return ParseFile(rel, data, info.ModTime().UnixMilli()), nil
}

// ParseFile builds a Document from file contents. The extension picks the
// encoding: .chat.json holds a transcript, .json is a JSON note, .md and
// .markdown are markdown, anything else is plain text.
func ParseFile(rel string, data []byte, modTime int64) Document {
	lower := strings.ToLower(rel)
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	doc := Document{
		ID:            rel,
		Type:          TypeNote,
		Title:         stem,
		Content:       string(data),
		ContentType:   ContentText,
		LastUpdatedAt: modTime,
	}

	switch {
	case strings.HasSuffix(lower, chatSuffix):
		doc.Title = base[:len(base)-len(chatSuffix)]
		if chat, err := parseChat(data); err == nil {
			doc.Type = TypeChat
			doc.Turns = chat.Turns
			doc.Content = RenderTurns(chat.Turns)
			if chat.Title != "" {
				doc.Title = chat.Title
			}
			doc.Tags = chat.Tags
			doc.URL = chat.URL
		} else {
			// Left as a JSON note so chunking reports the parse failure.
			doc.ContentType = ContentJSON
		}
	case strings.HasSuffix(lower, ".json"):
		doc.ContentType = ContentJSON
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		doc.ContentType = ContentMarkdown
		fm, body := splitFrontmatter(doc.Content)
		doc.Content = body
		doc.Tags = fm.Tags
		doc.URL = fm.URL
		doc.Description = fm.Description
		switch {
		case fm.Title != "":
			doc.Title = fm.Title
		case firstHeading(body) != "":
			doc.Title = firstHeading(body)
		}
	}

	return doc
}

// chatFile is the on-disk transcript format.
type chatFile struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
	Turns []Turn   `json:"turns"`
}

func parseChat(data []byte) (chatFile, error) {
	var c chatFile
	if err := json.Unmarshal(data, &c); err != nil {
		return chatFile{}, err
	}
	if len(c.Turns) == 0 {
		return chatFile{}, fmt.Errorf("chat has no turns")
	}
	return c, nil
}

// RenderTurns formats a transcript as "role: content" blocks.
func RenderTurns(turns []Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(t.Content))
	}
	return sb.String()
}
