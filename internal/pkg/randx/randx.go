/*
Package randx provides cryptographically secure random identifiers.

It generates hex invite tokens, base62 room-name suffixes and UUID entry IDs.
*/
package randx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// InviteTokenBytes is the amount of entropy in an invite token.
	InviteTokenBytes = 32

	// RoomSuffixLength is the length of the random suffix appended to generated room names.
	RoomSuffixLength = 6

	// RoomNamePrefix starts every generated room name.
	RoomNamePrefix = "room-"
)

// InviteToken returns InviteTokenBytes random bytes, hex encoded.
func InviteToken() (string, error) {
	buf := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsValidInviteToken reports whether token has the shape produced by InviteToken.
func IsValidInviteToken(token string) bool {
	if len(token) != InviteTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// Base62 returns a random Base62 string of the given length.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random base62 character: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// RoomName builds a room name from the creation time and a random suffix,
// e.g. "room-1718000000000-a8Zk2Q".
func RoomName(now time.Time) (string, error) {
	suffix, err := Base62(RoomSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d-%s", RoomNamePrefix, now.UnixMilli(), suffix), nil
}

// EntryID returns a UUID v4 string used for volatile display entries.
func EntryID() string {
	return uuid.New().String()
}
