package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mind-engage/savings-forecast/internal/storage"
)

const (
	artifactMagic   = "SFMA"
	artifactVersion = 1

	KindPreprocessor = "preprocessor"
	KindRegressor    = "regressor"

	PreprocessorFile = "preprocessor.gob"
	RegressorFile    = "elasticnet_multioutput_model.gob"
	BackupSuffix     = ".backup"
)

var (
	ErrArtifactFormat  = errors.New("not a model artifact")
	ErrArtifactVersion = errors.New("unsupported artifact version")
	ErrArtifactKind    = errors.New("unexpected artifact kind")
)

// Header precedes every gob-encoded artifact payload.
type Header struct {
	Magic     string
	Version   int
	Kind      string
	TrainedAt time.Time
}

// EncodeArtifact writes header and payload as two consecutive gob values.
func EncodeArtifact(w io.Writer, kind string, trainedAt time.Time, payload any) error {
	enc := gob.NewEncoder(w)
	h := Header{Magic: artifactMagic, Version: artifactVersion, Kind: kind, TrainedAt: trainedAt.UTC()}
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode %s header: %w", kind, err)
	}
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return nil
}

// DecodeArtifact reads an artifact of the given kind into payload.
func DecodeArtifact(r io.Reader, kind string, payload any) (Header, error) {
	dec := gob.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrArtifactFormat, err)
	}
	if h.Magic != artifactMagic {
		return h, ErrArtifactFormat
	}
	if h.Version != artifactVersion {
		return h, fmt.Errorf("%w: %d", ErrArtifactVersion, h.Version)
	}
	if h.Kind != kind {
		return h, fmt.Errorf("%w: got %s, want %s", ErrArtifactKind, h.Kind, kind)
	}
	if err := dec.Decode(payload); err != nil {
		return h, fmt.Errorf("decode %s: %w", kind, err)
	}
	return h, nil
}

// Bundle is the pair of fitted artifacts the service runs on.
type Bundle struct {
	Preprocessor *Preprocessor
	Regressor    *MultiOutputRegressor
	TrainedAt    time.Time
}

// LoadBundle reads both artifacts. Any missing, unreadable or incompatible
// file is an error; callers treat it as fatal.
func LoadBundle(store storage.BlobStore) (*Bundle, error) {
	b := &Bundle{Preprocessor: &Preprocessor{}, Regressor: &MultiOutputRegressor{}}
	ph, err := loadArtifact(store, PreprocessorFile, KindPreprocessor, b.Preprocessor)
	if err != nil {
		return nil, err
	}
	if _, err := loadArtifact(store, RegressorFile, KindRegressor, b.Regressor); err != nil {
		return nil, err
	}
	if len(b.Regressor.Estimators) == 0 {
		return nil, fmt.Errorf("%s: no estimators", RegressorFile)
	}
	width := b.Preprocessor.OutputWidth()
	for i, est := range b.Regressor.Estimators {
		if len(est.Coef) != width {
			return nil, fmt.Errorf("%s: estimator %d expects %d inputs, preprocessor emits %d",
				RegressorFile, i, len(est.Coef), width)
		}
	}
	b.TrainedAt = ph.TrainedAt
	return b, nil
}

func loadArtifact(store storage.BlobStore, key, kind string, payload any) (Header, error) {
	rc, err := store.Get(key)
	if err != nil {
		return Header{}, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()
	h, err := DecodeArtifact(rc, kind, payload)
	if err != nil {
		return h, fmt.Errorf("load %s: %w", key, err)
	}
	return h, nil
}

// SaveBundle writes both artifacts. With backup set, existing files are first
// renamed to <key>.backup; the renamed keys are returned.
func SaveBundle(store storage.BlobStore, b *Bundle, backup bool) ([]string, error) {
	var backedUp []string
	if backup {
		for _, key := range []string{RegressorFile, PreprocessorFile} {
			ok, err := store.Exists(key)
			if err != nil {
				return backedUp, err
			}
			if !ok {
				continue
			}
			if err := store.Rename(key, key+BackupSuffix); err != nil {
				return backedUp, fmt.Errorf("backup %s: %w", key, err)
			}
			backedUp = append(backedUp, key+BackupSuffix)
		}
	}

	for _, a := range []struct {
		key, kind string
		payload   any
	}{
		{RegressorFile, KindRegressor, b.Regressor},
		{PreprocessorFile, KindPreprocessor, b.Preprocessor},
	} {
		var buf bytes.Buffer
		if err := EncodeArtifact(&buf, a.kind, b.TrainedAt, a.payload); err != nil {
			return backedUp, err
		}
		if _, err := store.Put(a.key, &buf); err != nil {
			return backedUp, fmt.Errorf("save %s: %w", a.key, err)
		}
	}
	return backedUp, nil
}
