package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SignatureLength is the number of hex characters kept from the digest
const SignatureLength = 16

var emptyJSONArray = json.RawMessage("[]")

// SkillsSignature derives the mechanics key used to tell same-named cards apart.
// It hashes the compact JSON object {"abilities":...,"attacks":...} with the
// arrays exactly as supplied; element order matters.
func SkillsSignature(abilities, attacks json.RawMessage) (string, error) {
	payload := struct {
		Abilities json.RawMessage `json:"abilities"`
		Attacks   json.RawMessage `json:"attacks"`
	}{
		Abilities: orEmptyArray(abilities),
		Attacks:   orEmptyArray(attacks),
	}

	// HTML escaping off so text like "&" hashes the same as the scrapers' output
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}

	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:])[:SignatureLength], nil
}

func orEmptyArray(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyJSONArray
	}
	return trimmed
}
