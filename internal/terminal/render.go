package terminal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
)

// Styles are the lipgloss styles used by the REPL.
type Styles struct {
	Bot   lipgloss.Style
	Bold  lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
}

// NewStyles creates styles bound to r, so color support is detected for the
// writer the REPL prints to.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Bot: r.NewStyle().
			Foreground(lipgloss.Color("#8b5cf6")).
			Bold(true),
		Bold: r.NewStyle().Bold(true),
		Muted: r.NewStyle().
			Foreground(lipgloss.Color("#6b7280")),
		Error: r.NewStyle().
			Foreground(lipgloss.Color("#ef4444")),
	}
}

// Flatten turns reply markup into terminal text. Line breaks become
// newlines, bold runs are rendered with bold and links keep their target
// unless the label already shows it.
func Flatten(markup string, bold lipgloss.Style) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "br":
				sb.WriteString("\n")
				return
			case "b", "strong":
				sb.WriteString(bold.Render(textContent(n)))
				return
			case "a":
				label := textContent(n)
				sb.WriteString(label)
				if href := attr(n, "href"); href != "" && !strings.HasSuffix(href, label) {
					sb.WriteString(" (" + href + ")")
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.TrimSpace(sb.String())
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
