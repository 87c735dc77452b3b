package codec

import (
	"bytes"
	"encoding/json"

	"github.com/go-kratos/kratos/v2/encoding"
)

const Name = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec replaces the kratos json codec so HTTP responses match the
// CLI's --format json output.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return MarshalJSON(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return Name }

// MarshalJSON encodes v with a two-space indent, without HTML escaping and
// without a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
