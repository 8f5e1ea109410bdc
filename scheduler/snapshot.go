package scheduler

import (
	"io"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

// WriteSnapshot encodes u for persistence between scheduler restarts, the
// same way a Nomad server snapshots FSM state with msgpack rather than
// JSON: cheaper to encode and decode at the sizes a live queue reaches.
func WriteSnapshot(w io.Writer, u *Universe) error {
	return codec.NewEncoder(w, msgpackHandle).Encode(u)
}

// ReadSnapshot decodes a Universe previously written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Universe, error) {
	var u Universe
	if err := codec.NewDecoder(r, msgpackHandle).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
