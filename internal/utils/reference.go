package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference generates a unique merchant reference for transactions.
// The random part is a full UUIDv4, so collisions are not a practical concern;
// the date prefix keeps references sortable for support staff.
func GenerateReference(prefix string) string {
	timestamp := time.Now().Format("20060102")
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, token)
}
