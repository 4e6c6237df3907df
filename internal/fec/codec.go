// Package fec provides the coded-transmission mode of the benchmark: frames
// are Reed-Solomon encoded across shards, each shard carries its own CRC-32,
// and shards failing the CRC on receive are marked as erasures for
// reconstruction.
package fec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/reedsolomon"
)

const crcLen = 4

// Codec encodes and decodes Reed-Solomon frames.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec creates a codec with the given shard geometry.
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("fec: create encoder: %w", err)
	}
	return &Codec{enc: enc, dataShards: dataShards, parityShards: parityShards}, nil
}

// DataShards returns the data shard count.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the parity shard count.
func (c *Codec) ParityShards() int { return c.parityShards }

// FrameLen returns the on-air frame size in bytes for a payload of the given
// length: every shard plus its CRC trailer.
func (c *Codec) FrameLen(payloadLen int) int {
	shardSize := (payloadLen + c.dataShards - 1) / c.dataShards
	return (c.dataShards + c.parityShards) * (shardSize + crcLen)
}

// EncodeFrame splits the payload into data shards, computes parity, and
// appends a CRC-32 trailer to every shard. Shards are concatenated in order.
func (c *Codec) EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("fec: empty payload")
	}

	shardSize := (len(payload) + c.dataShards - 1) / c.dataShards
	total := c.dataShards + c.parityShards

	shards := make([][]byte, total)
	for i := 0; i < c.dataShards; i++ {
		shards[i] = make([]byte, shardSize)
		if start := i * shardSize; start < len(payload) {
			end := start + shardSize
			if end > len(payload) {
				end = len(payload)
			}
			copy(shards[i], payload[start:end])
		}
	}
	for i := c.dataShards; i < total; i++ {
		shards[i] = make([]byte, shardSize)
	}

	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("fec: encode: %w", err)
	}

	out := make([]byte, 0, total*(shardSize+crcLen))
	for _, shard := range shards {
		out = append(out, shard...)
		out = appendCRC(out, shard)
	}
	return out, nil
}

// DecodeFrame verifies every shard's CRC, erases the failures, and
// reconstructs the payload. It returns the recovered payload and the number
// of erased shards; reconstruction fails once erasures exceed the parity
// shard count.
func (c *Codec) DecodeFrame(raw []byte, payloadLen int) ([]byte, int, error) {
	total := c.dataShards + c.parityShards
	if len(raw)%total != 0 || len(raw)/total <= crcLen {
		return nil, 0, fmt.Errorf("fec: frame size %d invalid for %d shards", len(raw), total)
	}
	stride := len(raw) / total
	shardSize := stride - crcLen

	shards := make([][]byte, total)
	erased := 0
	for i := 0; i < total; i++ {
		chunk := raw[i*stride : (i+1)*stride]
		if verifyCRC(chunk[:shardSize], chunk[shardSize:]) {
			shards[i] = append([]byte(nil), chunk[:shardSize]...)
		} else {
			erased++
		}
	}

	if err := c.enc.Reconstruct(shards); err != nil {
		return nil, erased, fmt.Errorf("fec: reconstruct with %d erasures: %w", erased, err)
	}

	payload := make([]byte, 0, c.dataShards*shardSize)
	for i := 0; i < c.dataShards; i++ {
		payload = append(payload, shards[i]...)
	}
	if payloadLen > len(payload) {
		return nil, erased, fmt.Errorf("fec: payload length %d exceeds frame capacity %d", payloadLen, len(payload))
	}
	return payload[:payloadLen], erased, nil
}

func appendCRC(dst, shard []byte) []byte {
	var buf [crcLen]byte
	binary.BigEndian.PutUint32(buf[:], crc32.ChecksumIEEE(shard))
	return append(dst, buf[:]...)
}

func verifyCRC(shard, trailer []byte) bool {
	return binary.BigEndian.Uint32(trailer) == crc32.ChecksumIEEE(shard)
}
