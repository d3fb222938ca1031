package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"debugtrail/internal/config"
	appErrors "debugtrail/internal/errors"
)

// Codec serializes stored values.
type Codec interface {
	Name() string
	Ext() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ParseCodec returns the codec registered under name.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.CodecJSON:
		return JSONCodec{}, nil
	case config.CodecMsgpack:
		return MsgpackCodec{}, nil
	}
	return nil, appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("unknown storage codec %q", name), nil)
}

// JSONCodec writes indented JSON so stored sessions stay readable.
type JSONCodec struct{}

func (JSONCodec) Name() string { return config.CodecJSON }
func (JSONCodec) Ext() string  { return ".json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec writes msgpack using the json struct tags of the domain types.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return config.CodecMsgpack }
func (MsgpackCodec) Ext() string  { return ".msgpack" }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
