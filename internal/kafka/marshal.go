package kafka

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Decode unmarshals a message value into T.
func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		return t, errors.Wrap(err, "decode message")
	}
	return t, nil
}
