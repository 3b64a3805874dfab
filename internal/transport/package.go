package transport

import (
	"fmt"
	"io"
)

// Package is a framed unit of the wire protocol: a Header plus its body.
type Package struct {
	Header Header
	Body   []byte
}

// NewPackage builds a Package, deriving BodyLength and TypeCheck from body and t.
func NewPackage(requestID uint16, t PackageType, body []byte) Package {
	return Package{Header: NewHeader(requestID, uint32(len(body)), t), Body: body}
}

// WritePackage writes pkg's header followed by its body to w.
func WritePackage(w io.Writer, pkg Package) error {
	buf := make([]byte, HeaderSize)
	EncodeHeader(buf, pkg.Header)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("transport: write header: %w", err)
	}
	if len(pkg.Body) == 0 {
		return nil
	}
	if _, err := w.Write(pkg.Body); err != nil {
		return fmt.Errorf("transport: write body: %w", err)
	}
	return nil
}

// ReadPackage reads one framed Package from r. maxBody bounds the accepted
// body_length, guarding against a corrupt or hostile header demanding an
// unbounded allocation.
func ReadPackage(r io.Reader, maxBody uint32) (Package, error) {
	hdrBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		return Package{}, fmt.Errorf("transport: read header: %w", err)
	}
	h, err := DecodeHeader(hdrBuf)
	if err != nil {
		return Package{}, err
	}
	if h.BodyLength > maxBody {
		return Package{}, fmt.Errorf("transport: body_length %d exceeds max %d", h.BodyLength, maxBody)
	}
	var body []byte
	if h.BodyLength > 0 {
		body = make([]byte, h.BodyLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return Package{}, fmt.Errorf("transport: read body: %w", err)
		}
	}
	return Package{Header: h, Body: body}, nil
}
