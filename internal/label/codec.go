// Package label renders allocated codes as QR images and reads scanned
// images back into payloads. It carries no business logic; it is a thin
// adapter over the barcode libraries.
package label

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
)

// DefaultSizePixels is the edge length of rendered labels when the
// caller does not configure one.
const DefaultSizePixels = 256

type Codec struct {
	sizePixels int
}

func NewCodec(sizePixels int) *Codec {
	if sizePixels <= 0 {
		sizePixels = DefaultSizePixels
	}
	return &Codec{sizePixels: sizePixels}
}

// Encode renders the payload as a PNG QR image. Output is deterministic
// for a given payload and codec configuration, so a label can be
// re-printed byte-identically.
func (c *Codec) Encode(payload model.LabelPayload) ([]byte, error) {
	if payload.Code == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if !payload.Category.Valid() {
		return nil, apperrors.InvalidInput("category", string(payload.Category))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Internal("failed to marshal label payload").WithCause(err)
	}

	// Low recovery level matches the printed labels already in the
	// field; a level change would alter every reprint.
	png, err := qrcode.Encode(string(data), qrcode.Low, c.sizePixels)
	if err != nil {
		return nil, apperrors.Internal("failed to render label").WithCause(err)
	}
	return png, nil
}

// Decode extracts the payload from a scanned label image. A missing or
// unreadable symbol yields UNREADABLE_LABEL; a symbol that does not
// parse as a payload yields MALFORMED_PAYLOAD. The name field is
// optional: callers fall back to a lookup by code when it is empty.
func (c *Codec) Decode(imageBytes []byte) (*model.LabelPayload, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, apperrors.UnreadableLabel().WithCause(err)
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, apperrors.UnreadableLabel().WithCause(err)
	}

	result, err := zxqrcode.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		return nil, apperrors.UnreadableLabel().WithCause(err)
	}

	var payload model.LabelPayload
	if err := json.Unmarshal([]byte(result.GetText()), &payload); err != nil {
		return nil, apperrors.MalformedPayload("not a JSON payload").WithCause(err)
	}
	if payload.Code == "" {
		return nil, apperrors.MalformedPayload("missing code field")
	}
	if !payload.Category.Valid() {
		return nil, apperrors.MalformedPayload("unknown category " + string(payload.Category))
	}
	return &payload, nil
}
