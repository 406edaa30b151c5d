package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// codec selects the frame encoding.
type codec uint8

const (
	codecJSON codec = iota
	codecMsgpack
)

// codecFor maps a websocket frame type to its codec.
func codecFor(frameType int) (codec, error) {
	switch frameType {
	case websocket.TextMessage:
		return codecJSON, nil
	case websocket.BinaryMessage:
		return codecMsgpack, nil
	default:
		return 0, fmt.Errorf("unsupported frame type %d", frameType)
	}
}

func (c codec) frameType() int {
	if c == codecMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c codec) encode(m Message) ([]byte, error) {
	if c == codecJSON {
		return json.Marshal(m)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c codec) decode(data []byte) (Message, error) {
	var m Message
	if c == codecJSON {
		err := json.Unmarshal(data, &m)
		return m, err
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&m)
	return m, err
}
