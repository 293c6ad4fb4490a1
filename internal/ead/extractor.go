// Package ead extracts finding aid metadata and components from EAD XML.
package ead

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/archivebase/scanrepo/internal/models"
)

// File is the parsed content of one EAD upload. Component archive ids are
// filled in by the caller once the owning archive row is resolved.
type File struct {
	EadID       string
	CountryCode string
	Institution string
	Archive     string
	FindingAid  string
	Title       string
	Language    string
	Components  []models.Component
}

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) child(name string) *node {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *node) find(path ...string) *node {
	current := n
	for _, name := range path {
		current = current.child(name)
		if current == nil {
			return nil
		}
	}
	return current
}

func (n *node) text() string {
	return strings.TrimSpace(n.Text)
}

// allText flattens every text fragment below the node.
func (n *node) allText() string {
	parts := make([]string, 0, 8)
	var walk func(*node)
	walk = func(current *node) {
		if t := current.text(); t != "" {
			parts = append(parts, t)
		}
		for i := range current.Children {
			walk(&current.Children[i])
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// componentTags are the EAD c-node element names.
var componentTags = map[string]struct{}{
	"c": {}, "c01": {}, "c02": {}, "c03": {}, "c04": {}, "c05": {},
	"c06": {}, "c07": {}, "c08": {}, "c09": {},
}

// Parse decodes an EAD document. The fallback name, usually the upload
// filename without extension, becomes the ead id when the header carries
// no urn.
func Parse(data []byte, fallbackName string) (*File, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse ead xml: %w", err)
	}
	if root.XMLName.Local != "ead" {
		return nil, fmt.Errorf("not an ead document, root element is %q", root.XMLName.Local)
	}

	file := &File{}

	if eadid := root.find("eadheader", "eadid"); eadid != nil {
		file.EadID = strings.TrimSpace(eadid.attr("urn"))
		file.CountryCode = strings.TrimSpace(eadid.attr("countrycode"))
		file.FindingAid = eadid.text()
	}
	if file.EadID == "" {
		file.EadID = fallbackName
	}
	if title := root.find("eadheader", "filedesc", "titlestmt", "titleproper"); title != nil {
		file.Title = title.text()
	}
	if lang := root.find("eadheader", "profiledesc", "langusage", "language"); lang != nil {
		file.Language = strings.TrimSpace(lang.attr("langcode"))
	}

	archdesc := root.child("archdesc")
	if archdesc != nil {
		if unitid := archdesc.find("did", "unitid"); unitid != nil {
			file.Institution = strings.TrimSpace(unitid.attr("repositorycode"))
			file.Archive = unitid.text()
		}
		walker := &componentWalker{eadID: file.EadID}
		walker.walk(archdesc, "/ead/archdesc", "", true)
		file.Components = walker.components
	}

	return file, nil
}

type componentWalker struct {
	eadID      string
	components []models.Component
	order      int
}

// walk descends the element tree keeping the real parent/child structure,
// so component parents come from nesting rather than id prefix scans.
// parentShown tracks tree visibility: archive file leaves and anything
// below a hidden node stay out of the pruned tree.
func (w *componentWalker) walk(n *node, path, parentID string, parentShown bool) {
	counts := map[string]int{}
	for i := range n.Children {
		child := &n.Children[i]
		name := child.XMLName.Local
		counts[name]++
		childPath := fmt.Sprintf("%s/%s[%d]", path, name, counts[name])

		nextParent := parentID
		nextShown := parentShown
		if _, ok := componentTags[name]; ok {
			component := w.extract(child, childPath, parentID, parentShown)
			w.components = append(w.components, component)
			nextParent = component.ID
			nextShown = component.ShowInTree
		}
		w.walk(child, childPath, nextParent, nextShown)
	}
}

func (w *componentWalker) extract(n *node, path, parentID string, parentShown bool) models.Component {
	w.order++
	component := models.Component{
		ID:             w.eadID + path,
		EadID:          w.eadID,
		XPath:          path,
		ParentID:       parentID,
		Level:          strings.TrimSpace(n.attr("level")),
		IsComponent:    true,
		SequenceNumber: w.order,
		Text:           n.allText(),
	}
	if did := n.child("did"); did != nil {
		if unittitle := did.child("unittitle"); unittitle != nil {
			component.Title = unittitle.text()
		}
		if unitid := did.child("unitid"); unitid != nil {
			component.ArchiveFile = unitid.text()
		}
		if unitdate := did.child("unitdate"); unitdate != nil {
			if normal := strings.TrimSpace(unitdate.attr("normal")); normal != "" {
				parts := strings.SplitN(normal, "/", 2)
				component.DateFrom = parts[0]
				component.DateTo = parts[0]
				if len(parts) == 2 {
					component.DateTo = parts[1]
				}
			}
		}
	}
	component.IsArchiveFile = component.Level == "file" && component.ArchiveFile != ""
	switch {
	case parentID == "":
		component.ShowInTree = true
	case component.IsArchiveFile:
		component.ShowInTree = false
	default:
		component.ShowInTree = parentShown
	}
	return component
}
