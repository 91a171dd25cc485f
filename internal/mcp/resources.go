package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// URI schemes of the resources.
const (
	noteScheme  = "note://"
	chunkScheme = "chunk://"
)

// MaxResourceSize bounds the text returned for a note.
const MaxResourceSize = 1024 * 1024

func (s *Server) registerResources() {
	if s.ports.Documents != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: noteScheme + "{+id}",
			Name:        "note",
			Description: "Full text of an indexed note or chat transcript",
			MIMEType:    "text/markdown",
		}, s.handleNoteResource)
	}
	if s.ports.Chunks != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: chunkScheme + "{+id}",
			Name:        "chunk",
			Description: "One indexed chunk with its heading path and summary",
			MIMEType:    "application/json",
		}, s.handleChunkResource)
	}
}

// resourceID extracts and unescapes the id after scheme.
func resourceID(uri, scheme string) (string, error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", NewInvalidParamsError(fmt.Sprintf("expected a %s URI: %s", scheme, uri))
	}
	id, err := url.PathUnescape(strings.TrimPrefix(uri, scheme))
	if err != nil || id == "" {
		return "", NewInvalidParamsError(fmt.Sprintf("invalid resource URI: %s", uri))
	}
	return id, nil
}

func (s *Server) handleNoteResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := resourceID(uri, noteScheme)
	if err != nil {
		return nil, err
	}

	doc, err := s.ports.Documents.Get(ctx, id)
	if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, MapError(err)
	}

	text := renderDocument(doc)
	if len(text) > MaxResourceSize {
		text = text[:MaxResourceSize]
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType(doc),
			Text:     text,
		}},
	}, nil
}

// chunkResource is the JSON body of a chunk resource.
type chunkResource struct {
	ID          string   `json:"id"`
	NoteID      string   `json:"note_id"`
	Type        string   `json:"type"`
	HeadingPath []string `json:"heading_path,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Content     string   `json:"content"`
}

func (s *Server) handleChunkResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := resourceID(uri, chunkScheme)
	if err != nil {
		return nil, err
	}

	c, err := s.ports.Chunks.Get(ctx, id)
	if cerrors.HasCode(err, cerrors.ErrCodeNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, MapError(err)
	}

	body, err := json.MarshalIndent(chunkResource{
		ID:          c.ID,
		NoteID:      c.ParentID,
		Type:        string(c.ParentType),
		HeadingPath: c.HeadingPath,
		Summary:     c.Summary,
		Content:     c.Body(),
	}, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}

// renderDocument returns the readable text of doc. Chat transcripts without
// flattened content are rendered turn by turn.
func renderDocument(doc document.Document) string {
	if doc.Content != "" || len(doc.Turns) == 0 {
		return doc.Content
	}
	var sb strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	}
	for _, t := range doc.Turns {
		fmt.Fprintf(&sb, "**%s:** %s\n\n", t.Role, t.Content)
	}
	return sb.String()
}

func mimeType(doc document.Document) string {
	switch doc.ContentType {
	case document.ContentJSON:
		return "application/json"
	case document.ContentText:
		return "text/plain"
	default:
		return "text/markdown"
	}
}
