package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CardImport is one scraped card as submitted to the import endpoints
type CardImport struct {
	WebCardID       string          `json:"webCardId"`
	Name            string          `json:"name"`
	ExpansionCode   string          `json:"expansionCode"`
	CardNumber      *string         `json:"cardNumber"`
	CollectorNumber *string         `json:"collectorNumber"`
	Supertype       *string         `json:"supertype"`
	Subtypes        []string        `json:"subtypes"`
	EvolutionStage  *string         `json:"evolutionStage"`
	EvolvesFrom     *string         `json:"evolvesFrom"`
	EvolvesTo       NameList        `json:"evolvesTo"`
	RuleBox         *string         `json:"ruleBox"`
	HP              FlexString      `json:"hp"`
	Types           []string        `json:"types"`
	PokemonTypes    []string        `json:"pokemonTypes"`
	Abilities       json.RawMessage `json:"abilities"`
	Attacks         json.RawMessage `json:"attacks"`
	Rules           []string        `json:"rules"`
	Text            *string         `json:"text"`
	FlavorText      *string         `json:"flavorText"`
	Artist          *string         `json:"artist"`
	Rarity          *string         `json:"rarity"`
	RegulationMark  *string         `json:"regulationMark"`
	ImageURL        *string         `json:"imageUrl"`
	ImageURLHiRes   *string         `json:"imageUrlHiRes"`
	VariantType     *string         `json:"variantType"`
	Language        *string         `json:"language"`
	Region          *string         `json:"region"`
	SourceURL       *string         `json:"sourceUrl"`
	ScrapedAt       *string         `json:"scrapedAt"`
	PokedexNumber   *int            `json:"pokedexNumber"`
	Weakness        json.RawMessage `json:"weakness"`
	RetreatCost     *int            `json:"retreatCost"`
}

// ImportBatchRequest is the body of POST /cards/import/batch
type ImportBatchRequest struct {
	Cards []CardImport `json:"cards" binding:"required"`
}

// ImportResult summarises a batch import. Errors and warnings are per card.
type ImportResult struct {
	Success  int      `json:"success"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// FlexString accepts a JSON string or number; scrapers emit HP both ways
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexString(n.String())
	return nil
}

// NameList accepts either a comma-joined string or an array of names
type NameList []string

func (l *NameList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		*l = cleanNames(names)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("expected string or array of strings, got %s", data)
	}
	*l = cleanNames(strings.Split(joined, ","))
	return nil
}

// Joined returns the stored comma-joined form, or nil when empty
func (l NameList) Joined() *string {
	if len(l) == 0 {
		return nil
	}
	s := strings.Join(l, ",")
	return &s
}

func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// parseHP reads the leading integer of an HP string ("60", "HP 60", "１２０")
func parseHP(raw FlexString) *int {
	s := foldEnumInput(string(raw))
	s = strings.TrimPrefix(strings.ToUpper(s), "HP")
	s = strings.TrimSpace(s)

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}

// cardNumberFrom takes the prefix of "NNN/TTT", falling back to the explicit number
func cardNumberFrom(collectorNumber, cardNumber *string) *string {
	if collectorNumber != nil {
		prefix, _, _ := strings.Cut(strings.TrimSpace(*collectorNumber), "/")
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			return &prefix
		}
	}
	if cardNumber != nil {
		if n := strings.TrimSpace(*cardNumber); n != "" {
			return &n
		}
	}
	return nil
}
