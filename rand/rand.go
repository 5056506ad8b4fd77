package rand

import (
	cryptoRand "crypto/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// GenerateCryptoSafeRandomData fills b with cryptographically-safe random data.
func GenerateCryptoSafeRandomData(b []byte) error {
	if _, err := cryptoRand.Read(b); err != nil {
		return errors.Wrap(err, "rand: filling random buffer")
	}
	return nil
}

// GenerateUuid returns a UUID in string format (including hyphens). Used as the id of every accepted session.
func GenerateUuid() string {
	return uuid.NewString()
}
