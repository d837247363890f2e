package label

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec(256)

	tests := []struct {
		name    string
		payload model.LabelPayload
	}{
		{
			name: "item label with name",
			payload: model.LabelPayload{
				Code:     "ITEM-20240520-10086",
				Name:     "winter gloves",
				Category: model.CategoryItem,
			},
		},
		{
			name: "storage label",
			payload: model.LabelPayload{
				Code:     "A3001",
				Name:     "Bedroom / Wardrobe / A3001",
				Category: model.CategoryStorage,
			},
		},
		{
			name: "legacy label without name",
			payload: model.LabelPayload{
				Code:     "A3002",
				Category: model.CategoryStorage,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := codec.Encode(tt.payload)
			require.NoError(t, err)
			require.NotEmpty(t, img)

			decoded, err := codec.Decode(img)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, *decoded)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	codec := NewCodec(256)
	payload := model.LabelPayload{Code: "A1001", Category: model.CategoryStorage}

	first, err := codec.Encode(payload)
	require.NoError(t, err)
	second, err := codec.Encode(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeValidation(t *testing.T) {
	codec := NewCodec(256)

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := codec.Encode(model.LabelPayload{Category: model.CategoryItem})
		assert.Error(t, err)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := codec.Encode(model.LabelPayload{Code: "A1001", Category: "shelf"})
		assert.Error(t, err)
	})
}

func TestDecodeFailures(t *testing.T) {
	codec := NewCodec(256)

	t.Run("garbage bytes are unreadable", func(t *testing.T) {
		_, err := codec.Decode([]byte("definitely not an image"))
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnreadableLabel))
	})

	t.Run("blank image has no symbol", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				img.Set(x, y, color.White)
			}
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))

		_, err := codec.Decode(buf.Bytes())
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnreadableLabel))
	})

	t.Run("non-JSON symbol is malformed", func(t *testing.T) {
		img, err := qrcode.Encode("https://example.com/not-a-label", qrcode.Low, 256)
		require.NoError(t, err)

		_, err = codec.Decode(img)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPayload))
	})

	t.Run("JSON symbol without code is malformed", func(t *testing.T) {
		img, err := qrcode.Encode(`{"name":"gloves","category":"item"}`, qrcode.Low, 256)
		require.NoError(t, err)

		_, err = codec.Decode(img)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPayload))
	})

	t.Run("JSON symbol with unknown category is malformed", func(t *testing.T) {
		img, err := qrcode.Encode(`{"code":"A1001","category":"drawer"}`, qrcode.Low, 256)
		require.NoError(t, err)

		_, err = codec.Decode(img)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMalformedPayload))
	})
}
