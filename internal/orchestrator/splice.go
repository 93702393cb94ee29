package orchestrator

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// contentNodeID is the element id MediaWiki skeletons use for the
// article body, mirrored from original_source/src/page.rs's
// replace_node_with_placeholder("mw-content-text").
const contentNodeID = "mw-content-text"

// ErrContentNodeNotFound is returned when a page skeleton has no
// element carrying contentNodeID to splice the merged body into.
var ErrContentNodeNotFound = errors.New("orchestrator: skeleton has no mw-content-text node")

// spliceBody replaces the children of the skeleton's mw-content-text
// element with the parsed fragment bodyHTML, the Go-native equivalent
// of the original's placeholder-and-replace DOM walk.
func spliceBody(skeletonHTML, bodyHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(skeletonHTML))
	if err != nil {
		return "", err
	}

	target := findByID(doc, contentNodeID)
	if target == nil {
		return "", ErrContentNodeNotFound
	}

	for child := target.FirstChild; child != nil; {
		next := child.NextSibling
		target.RemoveChild(child)
		child = next
	}

	fragment, err := html.ParseFragment(strings.NewReader(bodyHTML), target)
	if err != nil {
		return "", err
	}

	for _, node := range fragment {
		target.AppendChild(node)
	}

	var out strings.Builder
	if err := html.Render(&out, doc); err != nil {
		return "", err
	}

	return out.String(), nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByID(child, id); found != nil {
			return found
		}
	}

	return nil
}
