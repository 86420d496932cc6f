package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/klauern/snapsync/internal/model"
)

// envelopeVersion is bumped whenever the stored layout changes incompatibly.
const envelopeVersion = 1

type envelope struct {
	Version  int            `msgpack:"v"`
	Snapshot model.Snapshot `msgpack:"s"`
}

func encodeSnapshot(snap model.Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(&envelope{Version: envelopeVersion, Snapshot: snap})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (model.Snapshot, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != envelopeVersion {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", env.Version)
	}
	return env.Snapshot, nil
}
