// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// VerifyFile checks that the file at path is a structurally valid PDF by
// parsing its cross-reference table. The magic-byte check runs first so a
// plain HTML error page gets a clearer message than a parser failure.
func VerifyFile(path string) error {
	head := make([]byte, len(pdfMagic))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	n, _ := f.Read(head)
	f.Close()
	if !bytes.HasPrefix(head[:n], pdfMagic) {
		return fmt.Errorf("%s: missing PDF header", path)
	}

	return parsePDF(path)
}

// parsePDF opens the document with the PDF parser. The parser panics on
// some malformed inputs, so the panic is converted to an error here.
func parsePDF(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: malformed PDF: %v", path, r)
		}
	}()

	pf, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("%s: malformed PDF: %w", path, err)
	}
	defer pf.Close()
	if r.NumPage() < 1 {
		return fmt.Errorf("%s: PDF has no pages", path)
	}
	return nil
}
