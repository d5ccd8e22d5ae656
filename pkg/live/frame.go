// Package live streams post-hydration fragment updates to connected
// clients over WebSocket. Each frame carries one element replacement or
// one control message, msgpack-encoded for compact binary framing.
package live

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FrameType discriminates wire frames.
type FrameType uint8

const (
	// FrameReplace swaps the inner HTML of one server-assigned element.
	FrameReplace FrameType = 1

	// FrameError notifies the client of an instance-level failure.
	FrameError FrameType = 2

	// FramePing is a liveness probe; the peer answers with FramePong.
	FramePing FrameType = 3
	FramePong FrameType = 4
)

// Frame is the unit of the live-update wire protocol.
type Frame struct {
	Type      FrameType `msgpack:"t"`
	ElementID string    `msgpack:"id,omitempty"`
	HTML      string    `msgpack:"html,omitempty"`
	Message   string    `msgpack:"msg,omitempty"`
}

// EncodeFrame serializes a frame for transmission.
func EncodeFrame(f Frame) ([]byte, error) {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame deserializes a received frame and validates its type.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Type {
	case FrameReplace, FrameError, FramePing, FramePong:
		return f, nil
	default:
		return Frame{}, fmt.Errorf("decode frame: unknown type %d", f.Type)
	}
}
