package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/chamada/internal/provider/opencv"
)

// Backend names accepted by DETECTOR and ENCODER.
const (
	BackendOpenCV   = "opencv"
	BackendDlib     = "dlib"
	BackendDeepFace = "deepface"
	BackendMock     = "mock"
)

// NewModels builds the process-wide detector/encoder pair from configuration.
//
// Environment variables:
//   - DETECTOR: "opencv" (default), "dlib", "deepface" or "mock"
//   - ENCODER: "dlib" (default), "deepface" or "mock"
//   - MODELS_DIR: dlib model files
//   - CASCADE_PATH: Haar cascade XML for the opencv detector
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - ENCODING_DIM: descriptor length for deepface and mock encoders
func NewModels(ctx context.Context, cfg *config.Config) (*provider.Models, error) {
	var closers []func() error
	fail := func(err error) (*provider.Models, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	var (
		rec *dlib.Recognizer
		df  *deepface.Provider
	)
	recognizer := func() (*dlib.Recognizer, error) {
		if rec != nil {
			return rec, nil
		}
		r, err := dlib.NewRecognizer(cfg.ModelsDir)
		if err != nil {
			return nil, err
		}
		rec = r
		closers = append(closers, r.Close)
		return r, nil
	}
	deepFace := func() *deepface.Provider {
		if df == nil {
			df = createDeepFaceProvider(cfg)
		}
		return df
	}

	var (
		enc provider.Encoder
		id  string
		dim int
	)
	switch cfg.Encoder {
	case BackendDlib, "":
		r, err := recognizer()
		if err != nil {
			return fail(fmt.Errorf("create dlib encoder: %w", err))
		}
		enc, id, dim = r, "dlib_resnet_v1", dlib.Dim
	case BackendDeepFace:
		enc, id, dim = deepFace(), "deepface:"+deepface.DefaultConfig().Model, cfg.EncodingDim
	case BackendMock:
		enc, id, dim = mock.New(cfg.EncodingDim), "mock", cfg.EncodingDim
	default:
		return fail(fmt.Errorf("unknown encoder: %s (supported: %s, %s, %s)",
			cfg.Encoder, BackendDlib, BackendDeepFace, BackendMock))
	}

	var det provider.Detector
	switch cfg.Detector {
	case BackendOpenCV, "":
		d, err := opencv.NewDetector(cfg.CascadePath)
		if err != nil {
			return fail(fmt.Errorf("create opencv detector: %w", err))
		}
		closers = append(closers, d.Close)
		det = d
	case BackendDlib:
		r, err := recognizer()
		if err != nil {
			return fail(fmt.Errorf("create dlib detector: %w", err))
		}
		det = r
	case BackendDeepFace:
		det = deepFace()
	case BackendMock:
		det = mock.New(cfg.EncodingDim)
	default:
		return fail(fmt.Errorf("unknown detector: %s (supported: %s, %s, %s, %s)",
			cfg.Detector, BackendOpenCV, BackendDlib, BackendDeepFace, BackendMock))
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	return provider.NewModels(id, dim, det, enc, closers...), nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	return deepface.NewProvider(deepfaceConfig)
}
