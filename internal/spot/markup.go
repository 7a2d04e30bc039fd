// Package spot reads and writes the segmented text kept on "spot" references:
// an optional preamble followed by sections that each start with a [Name]
// header line.
package spot

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var headerPattern = regexp.MustCompile(`^\[([^\[\]]+)\]$`)

var (
	ErrEmptySectionName = errors.New("section name is empty")
	ErrInvalidSection   = errors.New("invalid section")
)

type Section struct {
	Name string
	Body string
}

type Content struct {
	Preamble string
	Sections []Section
}

// Parse splits text into preamble and sections. Bodies are trimmed of
// surrounding whitespace; a header with a blank name is kept as body text.
func Parse(src string) Content {
	src = strings.ReplaceAll(src, "\r\n", "\n")

	var (
		c       Content
		current *Section
		body    []string
	)
	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		if current == nil {
			c.Preamble = joined
		} else {
			current.Body = joined
			c.Sections = append(c.Sections, *current)
		}
		body = body[:0]
	}

	for _, line := range strings.Split(src, "\n") {
		if name, ok := headerName(line); ok {
			flush()
			current = &Section{Name: name}
			continue
		}
		body = append(body, line)
	}
	flush()
	return c
}

func headerName(line string) (string, bool) {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	return name, name != ""
}

// String assembles the content back into markup. Parse(c.String()) yields c
// for any content that passes Validate.
func (c Content) String() string {
	var parts []string
	if p := strings.TrimSpace(c.Preamble); p != "" {
		parts = append(parts, p)
	}
	for _, s := range c.Sections {
		block := "[" + strings.TrimSpace(s.Name) + "]"
		if b := strings.TrimSpace(s.Body); b != "" {
			block += "\n" + b
		}
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n\n")
}

// Section looks up a section by name, ignoring case.
func (c Content) Section(name string) (Section, bool) {
	name = strings.TrimSpace(name)
	for _, s := range c.Sections {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Section{}, false
}

// Validate rejects content that would not survive a String/Parse round trip.
func (c Content) Validate() error {
	if err := noHeaders("preamble", c.Preamble); err != nil {
		return err
	}
	for i, s := range c.Sections {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("section %d: %w", i, ErrEmptySectionName)
		}
		if strings.ContainsAny(name, "[]\n") {
			return fmt.Errorf("%w: name %q contains brackets or line breaks", ErrInvalidSection, name)
		}
		if err := noHeaders(name, s.Body); err != nil {
			return err
		}
	}
	return nil
}

func noHeaders(where, body string) error {
	for _, line := range strings.Split(body, "\n") {
		if _, ok := headerName(line); ok {
			return fmt.Errorf("%w: %s has a header line %q", ErrInvalidSection, where, strings.TrimSpace(line))
		}
	}
	return nil
}

var linkParser = goldmark.New(goldmark.WithExtensions(extension.Linkify)).Parser()

// Links returns the http and https URLs in text, markdown links and bare
// URLs alike, in order of appearance and without duplicates.
func Links(src string) []string {
	source := []byte(src)
	doc := linkParser.Parse(text.NewReader(source))

	var links []string
	seen := make(map[string]bool)
	add := func(raw string) {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return
		}
		if !seen[raw] {
			seen[raw] = true
			links = append(links, raw)
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			add(string(node.Destination))
		case *ast.AutoLink:
			if node.AutoLinkType == ast.AutoLinkURL {
				add(string(node.URL(source)))
			}
		}
		return ast.WalkContinue, nil
	})
	return links
}
