package notifications

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultQRCodeSize = 256

// TicketQRCode renders the booking reference as a PNG QR code
func TicketQRCode(reference string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRCodeSize
	}
	qr, err := qrcode.New(reference, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}
