package occupancy

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// step is one segment of an element path such as "div[3]".
type step struct {
	tag   string
	index int // 1-based position among same-tag siblings; 0 matches any
}

// parsePath parses a slash separated element path, e.g. "div/div/div[3]/div".
func parsePath(p string) ([]step, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return nil, fmt.Errorf("empty element path")
	}

	var steps []step
	for _, seg := range strings.Split(p, "/") {
		s := step{tag: seg}
		if open := strings.IndexByte(seg, '['); open >= 0 {
			if !strings.HasSuffix(seg, "]") {
				return nil, fmt.Errorf("malformed path segment %q", seg)
			}
			n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("malformed index in path segment %q", seg)
			}
			s.tag, s.index = seg[:open], n
		}
		if s.tag == "" {
			return nil, fmt.Errorf("malformed path segment %q", seg)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// findByID returns the first element in document order carrying the given id.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// resolve walks steps below n and returns the first match in document order.
func resolve(n *html.Node, steps []step) *html.Node {
	if len(steps) == 0 {
		return n
	}
	s := steps[0]
	pos := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != s.tag {
			continue
		}
		pos++
		if s.index != 0 && pos != s.index {
			continue
		}
		if found := resolve(c, steps[1:]); found != nil {
			return found
		}
		if s.index != 0 {
			return nil
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
