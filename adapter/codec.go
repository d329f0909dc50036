package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format of published events.
type Encoding string

// Supported encodings.
const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding parses an encoding name. Empty means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("invalid encoding %q: must be json or msgpack", s)
	}
}

// ContentType returns the media type for the encoding.
func (e Encoding) ContentType() string {
	if e == EncodingMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Encode serializes event in the given encoding.
func Encode(enc Encoding, event *Event) ([]byte, error) {
	switch enc {
	case EncodingMsgpack:
		return msgpack.Marshal(event)
	case "", EncodingJSON:
		return json.Marshal(event)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}

// Decode parses data produced by Encode.
func Decode(enc Encoding, data []byte) (*Event, error) {
	var event Event
	var err error
	switch enc {
	case EncodingMsgpack:
		err = msgpack.Unmarshal(data, &event)
	case "", EncodingJSON:
		err = json.Unmarshal(data, &event)
	default:
		err = fmt.Errorf("unsupported encoding %q", enc)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}
