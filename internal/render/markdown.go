// Package render turns model replies into presentational HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const summaryBlocks = 4

type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render converts Markdown to HTML, then substitutes icon placeholders.
// Raw HTML in the input is not passed through.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return ReplaceIcons(buf.String()), nil
}

// Collapsible is a reply split into an always-visible summary and an
// optional expandable remainder.
type Collapsible struct {
	Summary  string `json:"summary"`
	Expanded string `json:"expanded,omitempty"`
}

// RenderCollapsible keeps everything up to the first level-2 heading plus the
// three blocks after it in the summary. Without such a heading the summary
// ends after the second paragraph.
func (r *Renderer) RenderCollapsible(markdown string) (Collapsible, error) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var blocks []ast.Node
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, n)
	}

	cut := len(blocks)
	if h2 := indexOf(blocks, func(n ast.Node) bool {
		h, ok := n.(*ast.Heading)
		return ok && h.Level == 2
	}); h2 >= 0 {
		cut = h2 + summaryBlocks
	} else {
		paragraphs := 0
		for i, n := range blocks {
			if n.Kind() == ast.KindParagraph {
				paragraphs++
				if paragraphs == 2 {
					cut = i + 1
					break
				}
			}
		}
	}
	if cut > len(blocks) {
		cut = len(blocks)
	}

	summary, err := r.renderBlocks(source, blocks[:cut])
	if err != nil {
		return Collapsible{}, err
	}
	expanded, err := r.renderBlocks(source, blocks[cut:])
	if err != nil {
		return Collapsible{}, err
	}
	return Collapsible{Summary: ReplaceIcons(summary), Expanded: ReplaceIcons(expanded)}, nil
}

func (r *Renderer) renderBlocks(source []byte, blocks []ast.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range blocks {
		if err := r.md.Renderer().Render(&buf, source, n); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
	}
	return buf.String(), nil
}

func indexOf(nodes []ast.Node, match func(ast.Node) bool) int {
	for i, n := range nodes {
		if match(n) {
			return i
		}
	}
	return -1
}
