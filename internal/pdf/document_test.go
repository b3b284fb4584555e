package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a PDF from object bodies numbered from 1, with object
// 1 as the catalog, and writes an xref table with accurate byte offsets.
func buildPDF(objects ...string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.7\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)
	return []byte(b.String())
}

func formPDF() []byte {
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Annots [6 0 R 7 0 R 8 0 R] >>",
		"<< /T (data[0]) /Kids [5 0 R] >>",
		"<< /T (Subform1[0]) /Parent 4 0 R /Kids [6 0 R 7 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /T (CIN_C[0]) /Parent 5 0 R /V (U123) /Rect [0 0 10 10] >>",
		"<< /Type /Annot /Subtype /Widget /T (Category[0]) /Parent 5 0 R /V /Firm /Rect [0 0 10 10] >>",
		"<< /Type /Annot /Subtype /Link /Rect [0 0 10 10] >>",
	)
}

func attachmentPDF(content string) []byte {
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /Names << /EmbeddedFiles 4 0 R >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		"<< /Names [(Board Resolution.pdf) 5 0 R] >>",
		"<< /Type /Filespec /F (Board Resolution.pdf) /UF (Board Resolution.pdf) /EF << /F 6 0 R >> >>",
		fmt.Sprintf("<< /Type /EmbeddedFile /Length %d >>\nstream\n%s\nendstream", len(content), content),
	)
}

func TestOpenBytes_FormFields(t *testing.T) {
	doc, err := OpenBytes(formPDF(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())

	fields, err := doc.FormFields()
	require.NoError(t, err)
	assert.Equal(t, "U123", fields["data[0].Subform1[0].CIN_C[0]"])
	assert.Equal(t, "Firm", fields["data[0].Subform1[0].Category[0]"])
	assert.Len(t, fields, 2)
}

func TestOpenBytes_NoAttachments(t *testing.T) {
	doc, err := OpenBytes(formPDF(), nil)
	require.NoError(t, err)

	n, err := doc.AttachmentCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	infos, err := doc.Attachments()
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = doc.AttachmentBytes(0)
	assert.Error(t, err)
}

func TestOpenBytes_Attachments(t *testing.T) {
	doc, err := OpenBytes(attachmentPDF("hello attachment"), nil)
	require.NoError(t, err)

	n, err := doc.AttachmentCount()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	info, err := doc.AttachmentInfo(0)
	require.NoError(t, err)
	assert.Equal(t, "Board Resolution.pdf", info.FileName)

	data, err := doc.AttachmentBytes(0)
	require.NoError(t, err)
	assert.Equal(t, "hello attachment", string(data))

	_, err = doc.AttachmentInfo(3)
	assert.Error(t, err)
}

// kidsAttachmentPDF stores two embedded files under an intermediate name
// tree node whose leaf lists its keys out of order.
func kidsAttachmentPDF() []byte {
	return buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /Names << /EmbeddedFiles 4 0 R >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		"<< /Kids [5 0 R] >>",
		"<< /Names [(Notice.pdf) 8 0 R (Board Resolution.pdf) 6 0 R] >>",
		"<< /Type /Filespec /F (Board Resolution.pdf) /UF (Board Resolution.pdf) /EF << /F 7 0 R >> >>",
		"<< /Type /EmbeddedFile /Length 10 >>\nstream\nresolution\nendstream",
		"<< /Type /Filespec /F (Notice.pdf) /UF (Notice.pdf) /EF << /F 9 0 R >> >>",
		"<< /Type /EmbeddedFile /Length 6 >>\nstream\nnotice\nendstream",
	)
}

func TestOpenBytes_AttachmentKidsTree(t *testing.T) {
	doc, err := OpenBytes(kidsAttachmentPDF(), nil)
	require.NoError(t, err)

	infos, err := doc.Attachments()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	contents := map[string]string{}
	for _, info := range infos {
		data, err := doc.AttachmentBytes(info.Index)
		require.NoError(t, err)
		contents[info.FileName] = string(data)
	}
	assert.Equal(t, map[string]string{
		"Board Resolution.pdf": "resolution",
		"Notice.pdf":           "notice",
	}, contents)
}

func TestDocument_NameTree(t *testing.T) {
	doc, err := OpenBytes(kidsAttachmentPDF(), nil)
	require.NoError(t, err)

	root, err := doc.ctx.DereferenceDict(*types.NewIndirectRef(4, 0))
	require.NoError(t, err)

	node, err := doc.nameTree(root, 0)
	require.NoError(t, err)
	assert.Equal(t, "Board Resolution.pdf", node.Kmin)
	assert.Equal(t, "Notice.pdf", node.Kmax)
	require.Len(t, node.Kids, 1)

	for _, key := range []string{"Board Resolution.pdf", "Notice.pdf"} {
		_, ok := node.Value(key)
		assert.True(t, ok, "lookup %q", key)
	}
	_, ok := node.Value("Missing.pdf")
	assert.False(t, ok)

	_, err = doc.nameTree(root, maxFieldDepth)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(good, formPDF(), 0o644))
	notPDF := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("just some text"), 0o644))

	tests := []struct {
		name      string
		path      string
		wantErr   bool
		wantNoPDF bool
	}{
		{name: "valid form", path: good},
		{name: "not a pdf", path: notPDF, wantErr: true, wantNoPDF: true},
		{name: "missing file", path: filepath.Join(dir, "missing.pdf"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Open(tt.path, nil)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.path, doc.Path())
				return
			}
			require.Error(t, err)
			assert.True(t, IsDocumentError(err))
			assert.Contains(t, err.Error(), tt.path)
			if tt.wantNoPDF {
				assert.ErrorIs(t, err, ErrNotPDF)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Board Resolution.pdf", "Board Resolution"},
		{"consent.letter.pdf", "consent.letter"},
		{"noext", "noext"},
		{".pdf", ".pdf"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.in))
		})
	}
}
