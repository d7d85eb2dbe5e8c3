package model

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

// ItemID identifies one catalog entry. It is opaque to the pipeline and
// only ever rendered back into URLs and directory names.
type ItemID int64

// ParseItemID parses a decimal item id. Only positive integers are valid.
func ParseItemID(s string) (ItemID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid item id", goerr.V("input", s))
	}
	if n <= 0 {
		return 0, goerr.New("item id must be positive", goerr.V("input", s))
	}
	return ItemID(n), nil
}

// String renders the id the way it appears in URLs and directory names.
func (id ItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
