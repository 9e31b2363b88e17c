package utils

import (
	"bytes"
	"crypto/rand"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math/big"

	"github.com/nfnt/resize"
)

// RandomID returns 16 random bytes in base62, safe for use as a photo or
// album id
func RandomID() string {
	buf := make([]byte, 16)
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
	var i big.Int
	return i.SetBytes(buf).Text(62)
}

type ImageConverted struct {
	Size int64
	NewX int
	NewY int
	OldX int
	OldY int
}

// CreateThumb scales the image down to fit in a size x size box and writes it as JPEG.
// Images that already fit are re-encoded at their size.
func CreateThumb(size uint, reader io.Reader, writer io.Writer) (result ImageConverted, err error) {
	img, _, err := image.Decode(reader)
	if err != nil {
		return result, err
	}
	return encode(resize.Thumbnail(size, size, img, resize.Lanczos3), img, writer)
}

// CreateCoverThumb crops the centre square of the image and scales it to size x size.
func CreateCoverThumb(size uint, reader io.Reader, writer io.Writer) (result ImageConverted, err error) {
	img, _, err := image.Decode(reader)
	if err != nil {
		return result, err
	}
	return encode(resize.Resize(size, size, cropSquare(img), resize.Lanczos3), img, writer)
}

func cropSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	rect := image.Rect(x0, y0, x0+side, y0+side)
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

func encode(newImage, original image.Image, writer io.Writer) (result ImageConverted, err error) {
	var newBuf bytes.Buffer
	if err = jpeg.Encode(&newBuf, newImage, &jpeg.Options{Quality: 90}); err != nil {
		return
	}
	imageRect := newImage.Bounds().Size()
	result.NewX = imageRect.X
	result.NewY = imageRect.Y

	imageRect = original.Bounds().Size()
	result.OldX = imageRect.X
	result.OldY = imageRect.Y

	result.Size, err = io.Copy(writer, &newBuf)
	return
}
