package utils

import (
	"log"
	"strings"

	"github.com/ollkyy/scoutbot/internal/models"
)

// ParseIdentityList parses a comma-separated identity list ("123,456").
// Malformed entries are logged and skipped rather than failing boot.
func ParseIdentityList(raw string) []models.Identity {
	var out []models.Identity
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := models.ParseIdentity(part)
		if err != nil {
			log.Printf("config: skip identity %q: %v", part, err)
			continue
		}
		out = append(out, id)
	}
	return out
}
