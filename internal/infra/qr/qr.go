package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderPNG encodes a QRIS payload string into a scannable PNG.
func RenderPNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
