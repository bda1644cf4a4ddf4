package processor

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const artworkMaxEdge = 600

// Artwork downscales thumbnails before embedding so a
// 4K upstream frame does not balloon every MP3
type Artwork struct{}

func (Artwork) Scale(data []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := decoded.Bounds()
	if bounds.Dx() > artworkMaxEdge || bounds.Dy() > artworkMaxEdge {
		decoded = resize.Thumbnail(artworkMaxEdge, artworkMaxEdge, decoded, resize.Lanczos3)
	}

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, decoded, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}
