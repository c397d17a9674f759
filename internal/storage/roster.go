package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/HankJediAssistant/hank-board/internal/domain"
)

const rosterSchemaURL = "roster.schema.json"

// Member ids double as @mention names, so they are limited to the characters
// a mention can carry and must already be lowercase.
const rosterSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "pattern": "^[a-z0-9_]+$"}
    }
  }
}`

var rosterValidator = jsonschema.MustCompileString(rosterSchemaURL, rosterSchema)

// ErrInvalidRoster is returned when the roster file does not match the schema.
var ErrInvalidRoster = errors.New("invalid roster")

// LoadRoster reads and validates the family roster at path.
func LoadRoster(path string) (*domain.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster validates and decodes a roster document.
func ParseRoster(data []byte) (*domain.Roster, error) {
	var doc any
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if err := rosterValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoster, schemaErrorSummary(err))
	}

	var members []domain.FamilyMember
	if err := sonic.ConfigStd.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return domain.NewRoster(members), nil
}

func schemaErrorSummary(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	collectLeafCauses(ve, &parts)
	if len(parts) == 0 {
		return ve.Message
	}
	return strings.Join(parts, "; ")
}

func collectLeafCauses(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectLeafCauses(c, out)
	}
}
