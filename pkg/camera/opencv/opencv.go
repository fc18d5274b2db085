// Package opencv is the OpenCV (gocv) capture backend for package camera.
package opencv

import (
	"fmt"
	"image"

	"github.com/teslashibe/go-camrng/pkg/camera"
	"gocv.io/x/gocv"
)

// Opener opens V4L2/AVFoundation/DirectShow devices through OpenCV.
type Opener struct{}

// NewOpener returns the OpenCV opener.
func NewOpener() Opener {
	return Opener{}
}

// Open implements camera.Opener.
func (Opener) Open(device int) (camera.Session, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("opencv: device %d did not open", device)
	}
	return &session{vc: vc, mat: gocv.NewMat()}, nil
}

// session owns one VideoCapture and a reusable read buffer.
type session struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func (s *session) SetResolution(width, height int) {
	if width > 0 {
		s.vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		s.vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
}

// Read grabs a frame and converts it to an image.Image. The Mat buffer is
// reused, the returned image is not.
func (s *session) Read() (image.Image, error) {
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, camera.ErrNoFrame
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("opencv: convert frame: %w", err)
	}
	return img, nil
}

func (s *session) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
