package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"yieldScope/internal/codec"
)

// ParseObjectIDs normalizes hex object ids, skipping blanks.
func ParseObjectIDs(inputs []string) ([]string, error) {
	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		id := codec.NormalizeHex(input)
		data, err := hexutil.Decode(id)
		if err != nil {
			return nil, fmt.Errorf("invalid object id: %s", input)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("invalid object id length: %s", input)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
