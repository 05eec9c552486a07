package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsMalformedDSN(t *testing.T) {
	_, err := Open(context.Background(), "user@tcp(127.0.0.1:3306)/memos?parseTime=maybe")
	assert.ErrorContains(t, err, "parse dsn")
}
