package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/burugo/record/internal/utils"
)

// Key kinds keep single-row and multi-row reads of the same statement apart.
const (
	KindOne = "one"
	KindAll = "all"
)

type keyPayload struct {
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args"`
}

// Key encodes a read kind, SQL text and its bound values into a deterministic
// cache key of the form {kind}:{sha256}.
func Key(kind, sql string, args []interface{}) (string, error) {
	normalizedArgs := make([]interface{}, len(args))
	for i, arg := range args {
		normalizedArgs[i] = utils.NormalizeValue(arg)
	}

	payload, err := json.Marshal(keyPayload{SQL: sql, Args: normalizedArgs})
	if err != nil {
		return "", fmt.Errorf("failed to marshal query for cache key: %w", err)
	}

	hasher := sha256.New()
	hasher.Write(payload)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(hasher.Sum(nil))), nil
}
