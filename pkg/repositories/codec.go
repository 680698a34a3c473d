package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/klauspost/compress/zstd"
)

// encodeGame serializes the game document stored by the SQL backends.
// Columns kept next to the document take precedence when reading back.
func encodeGame(game *types.Game) ([]byte, error) {
	b, err := json.Marshal(game)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game: %v", err)
	}

	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(b); err != nil {
		return nil, fmt.Errorf("failed to compress game: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}

	return compressed.Bytes(), nil
}

func decodeGame(data []byte) (*types.Game, error) {
	compReader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer compReader.Close()

	b, err := io.ReadAll(compReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed game: %v", err)
	}

	game := &types.Game{}
	if err := json.Unmarshal(b, game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %v", err)
	}
	return game, nil
}
