package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FormFields maps a fully qualified field name to its value.
type FormFields map[string]string

// AttachmentInfo describes one embedded file.
type AttachmentInfo struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Desc     string `json:"description,omitempty"`
}

// Document is an open PDF backed by a pdfcpu context.
type Document struct {
	path   string
	ctx    *model.Context
	logger *slog.Logger

	attachments []model.Attachment
	listed      bool
}

// Open reads the PDF at path. The file is read fully into memory so the
// Document stays usable after the underlying file handle is closed.
func Open(path string, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentError{Op: "open", Path: path, Err: err}
	}

	doc, err := OpenBytes(data, logger)
	if err != nil {
		var de *DocumentError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// OpenBytes reads a PDF from memory.
func OpenBytes(data []byte, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := readContext(bytes.NewReader(data))
	if err != nil {
		return nil, &DocumentError{Op: "open", Err: err}
	}
	return &Document{ctx: ctx, logger: logger}, nil
}

func readContext(rs io.ReadSeeker) (*model.Context, error) {
	if !hasPDFHeader(rs) {
		return nil, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read PDF context: %v", ErrNotPDF, err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: failed to ensure page count: %v", ErrNotPDF, err)
	}
	return ctx, nil
}

// hasPDFHeader checks for the %PDF- marker within the first KiB and
// rewinds the reader.
func hasPDFHeader(rs io.ReadSeeker) bool {
	head := make([]byte, 1024)
	n, _ := io.ReadFull(rs, head)
	_, _ = rs.Seek(0, io.SeekStart)
	return bytes.Contains(head[:n], []byte("%PDF-"))
}

// Path returns the file path the document was opened from, if any.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// FormFields walks every page's widget annotations and records each
// named widget's value. Values that are not strings or names become "".
func (d *Document) FormFields() (FormFields, error) {
	fields := FormFields{}

	for pageNr := 1; pageNr <= d.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := d.ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, &DocumentError{Op: "page", Path: d.path, Err: fmt.Errorf("page %d: %w", pageNr, err)}
		}
		if pageDict == nil {
			continue
		}

		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := d.ctx.DereferenceArray(annotsObj)
		if err != nil {
			d.logger.Debug("pdf.annots.unreadable", "page", pageNr, "error", err)
			continue
		}

		for i, annotObj := range annots {
			widget, err := d.ctx.DereferenceDict(annotObj)
			if err != nil || widget == nil {
				d.logger.Debug("pdf.annot.unreadable", "page", pageNr, "index", i, "error", err)
				continue
			}
			if !d.isWidget(widget) {
				continue
			}

			name := d.qualifiedName(widget)
			if name == "" {
				continue
			}
			fields[name] = d.fieldValue(widget)
		}
	}

	d.logger.Debug("pdf.form_fields", "path", d.path, "pages", d.ctx.PageCount, "fields", len(fields))
	return fields, nil
}

func (d *Document) isWidget(annot types.Dict) bool {
	subtypeObj, found := annot.Find("Subtype")
	if !found {
		// Bare field dictionaries listed in Annots are treated as widgets.
		_, hasT := annot.Find("T")
		return hasT
	}
	subtype, err := d.ctx.DereferenceName(subtypeObj, model.V10, nil)
	if err != nil {
		return false
	}
	return subtype == "Widget"
}

// maxFieldDepth bounds the Parent chain walk against reference cycles.
const maxFieldDepth = 32

// qualifiedName joins partial names (T) from the root field down to the
// widget with ".".
func (d *Document) qualifiedName(widget types.Dict) string {
	var parts []string
	current := widget
	for depth := 0; current != nil && depth < maxFieldDepth; depth++ {
		if tObj, found := current.Find("T"); found {
			if t, err := d.ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil && t != "" {
				parts = append(parts, t)
			}
		}
		parentObj, found := current.Find("Parent")
		if !found {
			break
		}
		parent, err := d.ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		current = parent
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// fieldValue resolves V on the widget or the nearest ancestor carrying it.
func (d *Document) fieldValue(widget types.Dict) string {
	current := widget
	for depth := 0; current != nil && depth < maxFieldDepth; depth++ {
		if vObj, found := current.Find("V"); found {
			return d.valueString(vObj)
		}
		parentObj, found := current.Find("Parent")
		if !found {
			break
		}
		parent, err := d.ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		current = parent
	}
	return ""
}

func (d *Document) valueString(obj types.Object) string {
	if s, err := d.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	if n, err := d.ctx.DereferenceName(obj, model.V10, nil); err == nil {
		return string(n)
	}
	if arr, err := d.ctx.DereferenceArray(obj); err == nil {
		var values []string
		for _, item := range arr {
			if s, err := d.ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
				values = append(values, s)
			}
		}
		return strings.Join(values, ", ")
	}
	return ""
}

func (d *Document) listAttachments() error {
	if d.listed {
		return nil
	}
	if err := d.loadEmbeddedFiles(); err != nil {
		return &DocumentError{Op: "attachments", Path: d.path, Err: err}
	}
	if d.ctx.Names["EmbeddedFiles"] != nil {
		aa, err := d.ctx.ListAttachments()
		if err != nil {
			return &DocumentError{Op: "attachments", Path: d.path, Err: err}
		}
		d.attachments = aa
	}
	d.listed = true
	return nil
}

// loadEmbeddedFiles internalizes the EmbeddedFiles name tree straight from
// the catalog. pdfcpu's own locator leaves the tree unparsed, and relaxed
// validation drops kids without Limits and keeps leaf keys in file order.
func (d *Document) loadEmbeddedFiles() error {
	delete(d.ctx.Names, "EmbeddedFiles")
	catalog, err := d.ctx.Catalog()
	if err != nil {
		return err
	}
	namesObj, found := catalog.Find("Names")
	if !found {
		return nil
	}
	names, err := d.ctx.DereferenceDict(namesObj)
	if err != nil || names == nil {
		return err
	}
	treeObj, found := names.Find("EmbeddedFiles")
	if !found {
		return nil
	}
	root, err := d.ctx.DereferenceDict(treeObj)
	if err != nil || root == nil {
		return err
	}
	node, err := d.nameTree(root, 0)
	if err != nil {
		return err
	}
	if node.Kmin == "" {
		d.logger.Debug("pdf.attachments.empty_tree", "path", d.path)
		return nil
	}
	d.ctx.Names["EmbeddedFiles"] = node
	return nil
}

// nameTree mirrors a name tree node and its kids. Leaf entries are sorted
// by key and every node carries its key limits so lookups by id work.
func (d *Document) nameTree(dict types.Dict, depth int) (*model.Node, error) {
	if depth >= maxFieldDepth {
		return nil, errors.New("name tree too deep")
	}
	node := &model.Node{D: dict}

	if kidsObj, found := dict.Find("Kids"); found {
		kids, err := d.ctx.DereferenceArray(kidsObj)
		if err != nil {
			return nil, err
		}
		for _, o := range kids {
			kd, err := d.ctx.DereferenceDict(o)
			if err != nil || kd == nil {
				continue
			}
			kid, err := d.nameTree(kd, depth+1)
			if err != nil || kid.Kmin == "" {
				continue
			}
			if node.Kmin == "" || kid.Kmin < node.Kmin {
				node.Kmin = kid.Kmin
			}
			if kid.Kmax > node.Kmax {
				node.Kmax = kid.Kmax
			}
			node.Kids = append(node.Kids, kid)
		}
		sort.Slice(node.Kids, func(i, j int) bool { return node.Kids[i].Kmin < node.Kids[j].Kmin })
		return node, nil
	}

	arr, err := d.ctx.DereferenceArray(dict["Names"])
	if err != nil {
		return nil, err
	}
	type pair struct {
		key string
		val types.Object
	}
	var pairs []pair
	for i := 0; i+1 < len(arr); i += 2 {
		key, err := d.ctx.DereferenceStringOrHexLiteral(arr[i], model.V10, nil)
		if err != nil {
			continue
		}
		pairs = append(pairs, pair{key, arr[i+1]})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	for _, p := range pairs {
		node.AppendToNames(p.key, p.val)
	}
	if len(pairs) > 0 {
		node.Kmin, node.Kmax = pairs[0].key, pairs[len(pairs)-1].key
	}
	return node, nil
}

// AttachmentCount returns the number of embedded files.
func (d *Document) AttachmentCount() (int, error) {
	if err := d.listAttachments(); err != nil {
		return 0, err
	}
	return len(d.attachments), nil
}

// AttachmentInfo returns metadata for the embedded file at index.
func (d *Document) AttachmentInfo(index int) (AttachmentInfo, error) {
	if err := d.listAttachments(); err != nil {
		return AttachmentInfo{}, err
	}
	if index < 0 || index >= len(d.attachments) {
		return AttachmentInfo{}, fmt.Errorf("attachment index %d out of range [0,%d)", index, len(d.attachments))
	}
	a := d.attachments[index]
	name := a.FileName
	if name == "" {
		name = a.ID
	}
	return AttachmentInfo{Index: index, ID: a.ID, FileName: name, Desc: a.Desc}, nil
}

// Attachments returns metadata for every embedded file.
func (d *Document) Attachments() ([]AttachmentInfo, error) {
	n, err := d.AttachmentCount()
	if err != nil {
		return nil, err
	}
	infos := make([]AttachmentInfo, 0, n)
	for i := 0; i < n; i++ {
		info, err := d.AttachmentInfo(i)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// AttachmentBytes returns the decoded content of the embedded file at index.
func (d *Document) AttachmentBytes(index int) ([]byte, error) {
	if err := d.listAttachments(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.attachments) {
		return nil, fmt.Errorf("attachment index %d out of range [0,%d)", index, len(d.attachments))
	}

	a, err := d.ctx.ExtractAttachment(d.attachments[index])
	if err != nil {
		return nil, fmt.Errorf("extract attachment %d: %w", index, err)
	}
	if a == nil || a.Reader == nil {
		return nil, fmt.Errorf("attachment %d has no content", index)
	}
	data, err := io.ReadAll(a.Reader)
	if err != nil {
		return nil, fmt.Errorf("read attachment %d: %w", index, err)
	}
	return data, nil
}

// BaseName strips the extension from an attachment file name. A name that
// is only an extension (".pdf") is returned unchanged.
func BaseName(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == fileName {
		return fileName
	}
	return strings.TrimSuffix(fileName, ext)
}
