package events

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abis/*.json
var abiFS embed.FS

// LoadABI parses the event ABI of a contract family.
func LoadABI(family string) (abi.ABI, error) {
	raw, err := abiFS.ReadFile("abis/" + family + ".json")
	if err != nil {
		return abi.ABI{}, fmt.Errorf("no ABI for family '%s': %w", family, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse %s ABI: %w", family, err)
	}

	return parsed, nil
}
