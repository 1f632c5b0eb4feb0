// Package readme loads a package README: it separates YAML frontmatter,
// fingerprints the content, renders HTML and lists relative links.
package readme

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// FileName is the README looked up in a source directory.
const FileName = "README.md"

// ErrMissingClosingDelimiter is returned for a document that opens a
// frontmatter block but never closes it.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Doc is a loaded README.
type Doc struct {
	Fields      map[string]any
	Body        []byte
	HTML        []byte
	Fingerprint string
	// Summary is the text of the first paragraph.
	Summary string
	// Links are the relative link and image destinations, sorted.
	Links []string
}

// Load reads and processes the README at path.
func Load(path string) (*Doc, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- README of a configured source directory
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse processes README content.
func Parse(content []byte) (*Doc, error) {
	fm, body, err := Split(content)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &fields); err != nil {
			return nil, fmt.Errorf("readme frontmatter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	fp, err := Fingerprint(fields, body)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render readme: %w", err)
	}
	return &Doc{
		Fields:      fields,
		Body:        body,
		HTML:        buf.Bytes(),
		Fingerprint: fp,
		Summary:     summary(buf.Bytes()),
		Links:       relativeLinks(md, body),
	}, nil
}

// Split separates a leading "---" delimited YAML block from the body. CRLF
// documents are handled.
func Split(content []byte) (frontmatter, body []byte, err error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}
	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], nil
	}
	closing := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		return nil, nil, ErrMissingClosingDelimiter
	}
	return rest[:idx+len(nl)], rest[idx+len(closing):], nil
}

// Fingerprint hashes the frontmatter fields and body with mdfp. The
// fingerprint field itself never contributes.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != mdfp.FingerprintField {
			hashed[k] = v
		}
	}
	fm := ""
	if len(hashed) > 0 {
		out, err := yaml.Marshal(hashed)
		if err != nil {
			return "", fmt.Errorf("serialize frontmatter: %w", err)
		}
		fm = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}

func relativeLinks(md goldmark.Markdown, body []byte) []string {
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(parser.NewContext()))
	seen := map[string]struct{}{}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		var dest string
		switch node := n.(type) {
		case *gmast.Link:
			dest = string(node.Destination)
		case *gmast.Image:
			dest = string(node.Destination)
		}
		if isRelative(dest) {
			seen[dest] = struct{}{}
		}
		return gmast.WalkContinue, nil
	})
	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)
	return links
}

func isRelative(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return false
	}
	return !strings.Contains(dest, "://") && !strings.HasPrefix(dest, "mailto:")
}

// summary returns the collapsed text of the first <p> element.
func summary(rendered []byte) string {
	doc, err := html.Parse(bytes.NewReader(rendered))
	if err != nil {
		return ""
	}
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "p" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if p := find(c); p != nil {
				return p
			}
		}
		return nil
	}
	p := find(doc)
	if p == nil {
		return ""
	}
	return strings.Join(strings.Fields(textOf(p)), " ")
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}
