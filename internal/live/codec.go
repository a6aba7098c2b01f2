package live

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("live: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("live: CBOR decoder initialization failed: " + err.Error())
	}
}

// envelope is the pub/sub message body. Origin lets an instance ignore its
// own messages.
type envelope struct {
	Origin  string   `cbor:"origin"`
	Changes []Change `cbor:"changes"`
}

func encodeEnvelope(e envelope) ([]byte, error) {
	data, err := encMode.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode changes: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope
	if err := decMode.Unmarshal(data, &e); err != nil {
		return envelope{}, fmt.Errorf("decode changes: %w", err)
	}
	for _, c := range e.Changes {
		if !c.Kind.Valid() {
			return envelope{}, fmt.Errorf("decode changes: unknown kind %q", c.Kind)
		}
	}
	return e, nil
}
