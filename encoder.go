package blueprint

import (
	"errors"
	"fmt"

	"github.com/pthm/blueprint/lib/encoding"
)

// paramCodec signs, or with WithEncryptedParams encrypts, address params
// carried in fragment URLs.
type paramCodec struct {
	codec *encoding.Codec
	mode  encoding.Mode
}

func newParamCodec(key []byte, mode encoding.Mode) (*paramCodec, error) {
	if len(key) == 0 {
		var err error
		if key, err = encoding.RandomKey(); err != nil {
			return nil, fmt.Errorf("blueprint: generate key: %w", err)
		}
	}
	c, err := encoding.NewCodec(key)
	if err != nil {
		return nil, err
	}
	return &paramCodec{codec: c, mode: mode}, nil
}

func (p *paramCodec) seal(params map[string]any) (string, error) {
	return p.codec.Seal(params, p.mode)
}

func (p *paramCodec) open(token string) (map[string]any, error) {
	params, err := p.codec.Open(token, p.mode)
	return params, wrapEncodingError(err)
}

// wrapEncodingError maps codec errors onto the package sentinels.
func wrapEncodingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, encoding.ErrInvalidFormat):
		return ErrInvalidFormat
	case errors.Is(err, encoding.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, encoding.ErrDecryptFailed):
		return ErrDecryptFailed
	}
	return err
}
